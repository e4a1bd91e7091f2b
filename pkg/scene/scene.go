package scene

import (
	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/lights"
)

// Receiver is a surface point at which direct lighting is estimated
type Receiver struct {
	Point  core.Vec3
	Normal core.Vec3 // Unit surface normal
}

// Scene contains all the elements needed for a direct lighting estimate
type Scene struct {
	Name         string
	Light        *lights.MultiQuadLight // Aggregate light, also the only occluder
	Lights       []lights.Light         // Lights in the scene
	LightSampler lights.LightSampler    // Light sampler
	Receivers    []Receiver
}

// NewScene wraps an aggregate light
func NewScene(name string, light *lights.MultiQuadLight, receivers []Receiver) *Scene {
	return &Scene{
		Name:      name,
		Light:     light,
		Lights:    []lights.Light{light},
		Receivers: receivers,
	}
}

// Preprocess prepares the scene for threadCount workers
func (s *Scene) Preprocess(threadCount int) error {
	s.Light.PrepareForRender(threadCount)

	// Use uniform light sampling
	if s.LightSampler == nil {
		s.LightSampler = lights.NewUniformLightSampler(len(s.Lights))
	}
	return nil
}

// Cleanup releases the per-render state of the scene's light
func (s *Scene) Cleanup() {
	s.Light.CleanupAfterRender()
}

// GetPrimitiveCount returns the total number of quads in the scene
func (s *Scene) GetPrimitiveCount() int {
	return s.Light.Geometry().Len()
}
