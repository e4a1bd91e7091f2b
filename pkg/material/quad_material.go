package material

import (
	"errors"
	"fmt"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// ErrInvalidEmission is returned for emission values that are negative or not finite
var ErrInvalidEmission = errors.New("invalid emission")

// QuadMaterial is the material shared by every quad that references it
type QuadMaterial struct {
	Name     string    // Name used by scene descriptions
	Emission core.Vec3 // Emitted radiance (RGB)
	TwoSided bool      // Whether the back face emits as well
}

// NewQuadMaterial creates a one-sided emissive quad material
func NewQuadMaterial(name string, emission core.Vec3) *QuadMaterial {
	return &QuadMaterial{Name: name, Emission: emission}
}

// NewTwoSidedQuadMaterial creates an emissive quad material that emits from both faces
func NewTwoSidedQuadMaterial(name string, emission core.Vec3) *QuadMaterial {
	return &QuadMaterial{Name: name, Emission: emission, TwoSided: true}
}

// Emit returns the material emission, or zero for the back face of a one-sided material
func (m *QuadMaterial) Emit(backside bool) core.Vec3 {
	if backside && !m.TwoSided {
		return core.Vec3{}
	}
	return m.Emission
}

// IsTwoSided implements Emitter
func (m *QuadMaterial) IsTwoSided() bool {
	return m.TwoSided
}

// IsEmissive reports whether the material emits any light
func (m *QuadMaterial) IsEmissive() bool {
	return m.Emission.X > 0 || m.Emission.Y > 0 || m.Emission.Z > 0
}

// Radiance returns the scalar radiance used for importance weights
func (m *QuadMaterial) Radiance() float64 {
	return m.Emission.Luminance()
}

// Validate checks that the emission is finite and non-negative
func (m *QuadMaterial) Validate() error {
	e := m.Emission
	if !e.IsFinite() || e.X < 0 || e.Y < 0 || e.Z < 0 {
		return fmt.Errorf("material %q: %w: %v", m.Name, ErrInvalidEmission, e)
	}
	return nil
}
