package lights

import (
	"math"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// QuadLight represents a single rectangular area light.
// It is the one-quad counterpart of MultiQuadLight and needs no preparation.
type QuadLight struct {
	Quad     geometry.Quad
	Material *material.QuadMaterial
}

// NewQuadLight creates a new quad light
func NewQuadLight(corner, u, v core.Vec3, mat *material.QuadMaterial) (*QuadLight, error) {
	quad, err := geometry.NewQuad(corner, u, v, 0)
	if err != nil {
		return nil, err
	}
	if err := mat.Validate(); err != nil {
		return nil, err
	}
	return &QuadLight{Quad: quad, Material: mat}, nil
}

func (ql *QuadLight) Type() LightType {
	return LightTypeArea
}

// facing reports whether point can receive light from the quad
func (ql *QuadLight) facing(point core.Vec3) bool {
	side := ql.Quad.Normal.Dot(point.Subtract(ql.Quad.Base))
	if side == 0 {
		return false
	}
	return side > 0 || ql.Material.IsTwoSided()
}

// SampleInboundDirection implements the Light interface - samples a point on the quad for direct lighting
func (ql *QuadLight) SampleInboundDirection(threadIndex int, point core.Vec3, sampler core.Sampler) (LightSample, bool) {
	if !ql.facing(point) || !ql.Material.IsEmissive() {
		return LightSample{}, false
	}

	// Sample uniformly on the quad surface
	uv := sampler.Get2D()
	samplePoint := ql.Quad.PointAt(uv.X, uv.Y)

	toLight := samplePoint.Subtract(point)
	distanceSquared := toLight.LengthSquared()
	if distanceSquared == 0 {
		return LightSample{}, false
	}
	distance := math.Sqrt(distanceSquared)
	direction := toLight.Multiply(1.0 / distance)

	// PDF_solid_angle = PDF_area * distance² / |cos(θ)|
	cosTheta := ql.Quad.Normal.Dot(direction)
	pdf := solidAnglePDF(1.0/ql.Quad.Area, distanceSquared, cosTheta)
	if pdf == 0 {
		return LightSample{}, false
	}

	// direction is FROM shading point TO light; a front face hit opposes the normal
	backside := cosTheta > 0

	return LightSample{
		Point:     samplePoint,
		Normal:    ql.Quad.Normal,
		Direction: direction,
		Distance:  distance,
		Emission:  ql.Material.Emit(backside),
		PDF:       pdf,
	}, true
}

// InboundPdf implements the Light interface - returns the probability density for sampling a given direction
func (ql *QuadLight) InboundPdf(threadIndex int, point, direction core.Vec3) float64 {
	if !ql.facing(point) || !ql.Material.IsEmissive() {
		return 0
	}
	direction = direction.Normalize()
	t, _, _, hit := ql.Quad.Intersect(core.NewRay(point, direction), rayEpsilon, math.Inf(1))
	if !hit {
		return 0
	}
	return solidAnglePDF(1.0/ql.Quad.Area, t*t, ql.Quad.Normal.Dot(direction))
}

// SampleOutboundDirection implements the Light interface - samples emission from the quad surface
func (ql *QuadLight) SampleOutboundDirection(threadIndex int, sampler core.Sampler) (EmissionSample, bool) {
	if !ql.Material.IsEmissive() {
		return EmissionSample{}, false
	}
	uv := sampler.Get2D()
	point := ql.Quad.PointAt(uv.X, uv.Y)
	sample := SampleEmissionDirection(point, ql.Quad.Normal, 1.0/ql.Quad.Area, ql.Material, sampler.Get2D())
	if sample.DirectionPDF <= 0 {
		return EmissionSample{}, false
	}
	return sample, true
}

// EmissionPdf returns both position and directional PDFs of SampleOutboundDirection
func (ql *QuadLight) EmissionPdf(point, direction core.Vec3) (pdfPos, pdfDir float64) {
	// Recover parametric coordinates and check the point lies on the quad
	toPoint := point.Subtract(ql.Quad.Base)
	alpha := ql.Quad.W.Dot(toPoint.Cross(ql.Quad.Edge1))
	beta := ql.Quad.W.Dot(ql.Quad.Edge0.Cross(toPoint))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, 0
	}
	if math.Abs(ql.Quad.Normal.Dot(toPoint)) > 1e-3 {
		return 0, 0
	}

	return 1.0 / ql.Quad.Area, EmissionDirectionPDF(ql.Quad.Normal, direction, ql.Material)
}

// ApproximateRadiance returns the exact radiance-weighted solid angle of the quad
func (ql *QuadLight) ApproximateRadiance(threadIndex int, point core.Vec3) float64 {
	if !ql.facing(point) {
		return 0
	}
	q := &ql.Quad
	return ql.Material.Radiance() * core.ParallelogramSolidAngle(point, q.Base, q.Edge0, q.Edge1)
}

func (ql *QuadLight) IsDelta() bool {
	return false
}

func (ql *QuadLight) IsInfinite() bool {
	return false
}
