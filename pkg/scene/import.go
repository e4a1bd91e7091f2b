package scene

import (
	"fmt"

	"github.com/df07/go-multiquad-light/pkg/loaders"
)

// ImportConfig configures NewDescriptionFromPLY
type ImportConfig struct {
	Emission  [3]float64 // Emission of every quad, or the scale of the vertex colors
	TwoSided  bool
	Tolerance float64 // Allowed parallelogram error relative to the longest edge
}

// NewDescriptionFromPLY converts the quad faces of a PLY mesh into a
// description. Meshes with vertex colors get one material per distinct color.
func NewDescriptionFromPLY(name string, data *loaders.PLYData, cfg ImportConfig) (*Description, error) {
	quads, err := data.Quads(cfg.Tolerance)
	if err != nil {
		return nil, err
	}

	desc := &Description{Name: name}
	materialOf := make(map[[3]float64]string)
	for _, q := range quads {
		emission := cfg.Emission
		if len(data.Colors) > 0 {
			emission = [3]float64{q.Color.X * cfg.Emission[0], q.Color.Y * cfg.Emission[1], q.Color.Z * cfg.Emission[2]}
		}
		materialName, ok := materialOf[emission]
		if !ok {
			materialName = fmt.Sprintf("emitter-%d", len(desc.Materials))
			materialOf[emission] = materialName
			desc.Materials = append(desc.Materials, MaterialDescription{
				Name:     materialName,
				Emission: emission,
				TwoSided: cfg.TwoSided,
			})
		}
		desc.Quads = append(desc.Quads, QuadDescription{
			Base:     array3(q.Base),
			Edge0:    array3(q.Edge0),
			Edge1:    array3(q.Edge1),
			Material: materialName,
		})
	}
	return desc, nil
}
