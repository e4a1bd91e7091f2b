package material

import (
	"github.com/df07/go-multiquad-light/pkg/core"
)

// Emitter interface for materials that emit light
type Emitter interface {
	// Emit returns the radiance leaving the surface on the given side
	Emit(backside bool) core.Vec3

	// IsTwoSided reports whether both faces of the surface emit
	IsTwoSided() bool
}
