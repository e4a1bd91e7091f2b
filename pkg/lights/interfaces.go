package lights

import (
	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
)

type LightType string

const (
	LightTypeArea     LightType = "area"
	LightTypePoint    LightType = "point"
	LightTypeInfinite LightType = "infinite"
)

// Light interface for objects that can be sampled for direct lighting.
// threadIndex selects per-thread scratch state and must be in
// [0, threadCount) as passed to the light's preparation step.
type Light interface {
	Type() LightType

	// SampleInboundDirection samples a direction from point towards the light.
	// Returns false when no direction with non-zero density could be produced.
	SampleInboundDirection(threadIndex int, point core.Vec3, sampler core.Sampler) (LightSample, bool)

	// InboundPdf returns the solid angle density of sampling direction from point
	InboundPdf(threadIndex int, point, direction core.Vec3) float64

	// SampleOutboundDirection samples an emitted ray for light tracing
	SampleOutboundDirection(threadIndex int, sampler core.Sampler) (EmissionSample, bool)

	// ApproximateRadiance is a cheap estimate of the light's contribution at point
	ApproximateRadiance(threadIndex int, point core.Vec3) float64

	IsDelta() bool
	IsInfinite() bool
}

// Primitive is a light that also takes part in ray intersection
type Primitive interface {
	Light

	Intersect(ray core.Ray, tMin, tMax float64) (geometry.QuadHit, bool)
	Occluded(ray core.Ray, tMin, tMax float64) bool
	HitBackside(hit geometry.QuadHit) bool
	IntersectionInfo(ray core.Ray, hit geometry.QuadHit) IntersectionInfo
	TangentSpace(hit geometry.QuadHit) (tangent, bitangent core.Vec3, ok bool)
	Emission(hit geometry.QuadHit) core.Vec3
	IsEmissive() bool
	Bounds() core.AABB
	AsTriangleMesh() *geometry.TriangleMesh

	PrepareForRender(threadCount int)
	CleanupAfterRender()
	IsSamplable() bool
	MakeSamplable(threadIndex int)
}

// LightSample contains information about a sampled point on a light
type LightSample struct {
	Point     core.Vec3 // Point on the light source
	Normal    core.Vec3 // Normal at the light sample point
	Direction core.Vec3 // Direction from shading point to light
	Distance  float64   // Distance to light
	Emission  core.Vec3 // Emitted light
	PDF       float64   // Solid angle density, including light selection
	Quad      int       // Index of the sampled quad
}

// EmissionSample contains information about a sampled emission for light tracing
type EmissionSample struct {
	Point        core.Vec3 // Point on the light surface
	Normal       core.Vec3 // Normal of the emitting side
	Direction    core.Vec3 // Emission direction FROM the surface (cosine-weighted hemisphere)
	Emission     core.Vec3 // Emitted radiance at this point and direction
	AreaPDF      float64   // PDF for position sampling (per unit area), including selection
	DirectionPDF float64
	Quad         int
}

// IntersectionInfo is the surface description of a primitive hit
type IntersectionInfo struct {
	Point    core.Vec3
	Normal   core.Vec3 // Geometric normal of the quad
	UV       core.Vec2
	Epsilon  float64 // Offset for spawning rays off the surface
	Material int
	Backside bool
}

// LightSampler picks one light out of a list
type LightSampler interface {
	// SampleLight selects a light and returns its index and selection probability
	SampleLight(point core.Vec3, u float64) (int, float64)

	// GetLightProbability returns the selection probability for a specific light at a surface point
	GetLightProbability(lightIndex int, point core.Vec3) float64

	// GetLightCount returns the number of lights in this sampler
	GetLightCount() int
}
