package scene

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SceneInfo describes a built-in scene
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	DisplayName string `json:"displayName"` // Display name
	Description string `json:"description"` // Optional description
}

// GridConfig configures NewQuadGridDescription
type GridConfig struct {
	Rows, Cols int
	CellSize   float64    // Edge length of each quad
	Gap        float64    // Spacing between neighbouring quads
	Height     float64    // Y coordinate of the grid; quads face down
	Emission   [3]float64 // Emission of every quad, or the brightness scale when Colored
	TwoSided   bool
	Colored    bool    // One material per column with hues spread around the color wheel
	Jitter     float64 // Maximum random rotation about Y in degrees
	Seed       int64
}

// DefaultGridConfig returns a 16x16 grid of unit quads four units up
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Rows:     16,
		Cols:     16,
		CellSize: 1,
		Gap:      0.25,
		Height:   4,
		Emission: [3]float64{4, 4, 4},
		Seed:     1,
	}
}

// oklchToRGB converts OKLCH color values to RGB
// L: lightness (0-1), C: chroma (0-0.4+), H: hue (0-360 degrees)
func oklchToRGB(l, c, h float64) [3]float64 {
	hRad := h * math.Pi / 180.0

	// Convert from OKLCH to OKLAB
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	// OKLAB to LMS, then cube
	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b
	l_ = l_ * l_ * l_
	m_ = m_ * m_ * m_
	s_ = s_ * s_ * s_

	// Convert LMS to linear RGB
	r := +4.0767416621*l_ - 3.3077115913*m_ + 0.2309699292*s_
	g := -1.2684380046*l_ + 2.6097574011*m_ - 0.3413193965*s_
	blue := -0.0041960863*l_ - 0.7034186147*m_ + 1.7076147010*s_

	// Clamp to [0, 1] range
	return [3]float64{
		math.Max(0, math.Min(1, r)),
		math.Max(0, math.Min(1, g)),
		math.Max(0, math.Min(1, blue)),
	}
}

// NewQuadGridDescription creates a rows x cols grid of downward facing quads
// centered above the origin, with a 3x3 patch of receivers on the floor
func NewQuadGridDescription(cfg GridConfig) *Description {
	desc := &Description{Name: fmt.Sprintf("grid-%dx%d", cfg.Rows, cfg.Cols)}

	if cfg.Colored {
		for col := 0; col < cfg.Cols; col++ {
			rgb := oklchToRGB(0.75, 0.15, 360*float64(col)/float64(cfg.Cols))
			desc.Materials = append(desc.Materials, MaterialDescription{
				Name:     fmt.Sprintf("emitter-%d", col),
				Emission: [3]float64{rgb[0] * cfg.Emission[0], rgb[1] * cfg.Emission[1], rgb[2] * cfg.Emission[2]},
				TwoSided: cfg.TwoSided,
			})
		}
	} else {
		desc.Materials = []MaterialDescription{{Name: "emitter", Emission: cfg.Emission, TwoSided: cfg.TwoSided}}
	}

	random := rand.New(rand.NewSource(cfg.Seed))
	pitch := cfg.CellSize + cfg.Gap
	width := float64(cfg.Cols)*pitch - cfg.Gap
	depth := float64(cfg.Rows)*pitch - cfg.Gap
	half := cfg.CellSize / 2

	for row := 0; row < cfg.Rows; row++ {
		for col := 0; col < cfg.Cols; col++ {
			materialName := desc.Materials[0].Name
			if cfg.Colored {
				materialName = desc.Materials[col].Name
			}
			angle := 0.0
			if cfg.Jitter > 0 {
				angle = (random.Float64()*2 - 1) * cfg.Jitter
			}

			// Centered at the origin so the rotation spins each quad in place
			// (x,0,0) × (0,0,z) points down
			desc.Quads = append(desc.Quads, QuadDescription{
				Base:     [3]float64{-half, 0, -half},
				Edge0:    [3]float64{cfg.CellSize, 0, 0},
				Edge1:    [3]float64{0, 0, cfg.CellSize},
				Material: materialName,
				Transform: &TransformDescription{
					Translate: [3]float64{
						-width/2 + float64(col)*pitch + half,
						cfg.Height,
						-depth/2 + float64(row)*pitch + half,
					},
					Rotate: [3]float64{0, angle, 0},
				},
			})
		}
	}

	for _, x := range []float64{-0.25, 0, 0.25} {
		for _, z := range []float64{-0.25, 0, 0.25} {
			desc.Receivers = append(desc.Receivers, ReceiverDescription{
				Point:  [3]float64{x * width, 0, z * depth},
				Normal: [3]float64{0, 1, 0},
			})
		}
	}
	return desc
}

// NewCornellCeilingDescription is the Cornell box light replaced by a 4x4
// panel array just below the 555 unit ceiling
func NewCornellCeilingDescription() *Description {
	const boxSize = 555.0
	const panels = 4
	const panelSize = 30.0
	const gap = 5.0

	desc := &Description{
		Name:      "cornell-ceiling",
		Materials: []MaterialDescription{{Name: "light", Emission: [3]float64{15, 15, 15}}},
	}

	span := panels*panelSize + (panels-1)*gap
	offset := (boxSize - span) / 2
	for i := 0; i < panels; i++ {
		for j := 0; j < panels; j++ {
			x := offset + float64(i)*(panelSize+gap)
			z := offset + float64(j)*(panelSize+gap)
			desc.Quads = append(desc.Quads, QuadDescription{
				Base:     [3]float64{x, boxSize - 1, z},
				Edge0:    [3]float64{panelSize, 0, 0},
				Edge1:    [3]float64{0, 0, panelSize},
				Material: "light",
			})
		}
	}

	desc.Receivers = []ReceiverDescription{
		{Point: [3]float64{278, 0, 278}, Normal: [3]float64{0, 1, 0}},
		{Point: [3]float64{100, 0, 450}, Normal: [3]float64{0, 1, 0}},
		{Point: [3]float64{0, 278, 278}, Normal: [3]float64{1, 0, 0}},
	}
	return desc
}

var builtins = map[string]struct {
	info SceneInfo
	make func() *Description
}{
	"grid": {
		SceneInfo{ID: "grid", DisplayName: "Quad Grid", Description: "16x16 grid of unit emitters"},
		func() *Description { return NewQuadGridDescription(DefaultGridConfig()) },
	},
	"grid-colored": {
		SceneInfo{ID: "grid-colored", DisplayName: "Colored Quad Grid", Description: "Jittered two-sided grid with a hue per column"},
		func() *Description {
			cfg := DefaultGridConfig()
			cfg.Colored = true
			cfg.TwoSided = true
			cfg.Jitter = 30
			return NewQuadGridDescription(cfg)
		},
	},
	"cornell-ceiling": {
		SceneInfo{ID: "cornell-ceiling", DisplayName: "Cornell Ceiling Panels", Description: "4x4 ceiling panels of a Cornell box"},
		NewCornellCeilingDescription,
	},
}

// Builtin returns the description of a built-in scene
func Builtin(id string) (*Description, error) {
	b, ok := builtins[id]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q", id)
	}
	return b.make(), nil
}

// ListBuiltin returns the built-in scenes sorted by ID
func ListBuiltin() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(builtins))
	for _, b := range builtins {
		scenes = append(scenes, b.info)
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes
}
