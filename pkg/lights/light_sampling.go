package lights

import (
	"math"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// Rays spawned towards a light start this far from the shading point
const rayEpsilon = 1e-6

// Cosines below this treat the light as edge-on
const minLightCosine = 1e-8

// UniformLightSampler selects every light with the same probability
type UniformLightSampler struct {
	count int
}

// NewUniformLightSampler creates a sampler over count lights
func NewUniformLightSampler(count int) *UniformLightSampler {
	return &UniformLightSampler{count: count}
}

// SampleLight implements LightSampler
func (s *UniformLightSampler) SampleLight(point core.Vec3, u float64) (int, float64) {
	if s.count == 0 {
		return -1, 0
	}
	index := int(u * float64(s.count))
	if index >= s.count {
		index = s.count - 1
	}
	return index, 1.0 / float64(s.count)
}

// GetLightProbability implements LightSampler
func (s *UniformLightSampler) GetLightProbability(lightIndex int, point core.Vec3) float64 {
	if lightIndex < 0 || lightIndex >= s.count {
		return 0
	}
	return 1.0 / float64(s.count)
}

// GetLightCount implements LightSampler
func (s *UniformLightSampler) GetLightCount() int {
	return s.count
}

// CalculateLightPDF calculates the combined PDF for a given direction toward multiple lights
func CalculateLightPDF(lights []Light, lightSampler LightSampler, threadIndex int, point, direction core.Vec3) float64 {
	if len(lights) == 0 {
		return 0.0
	}
	totalPDF := 0.0

	// For each light, calculate the PDF weighted by its selection probability
	for i, light := range lights {
		lightPDF := light.InboundPdf(threadIndex, point, direction)
		if lightPDF == 0 {
			continue
		}
		totalPDF += lightPDF * lightSampler.GetLightProbability(i, point)
	}

	return totalPDF
}

// SampleLight selects and samples a light from the scene
func SampleLight(lights []Light, lightSampler LightSampler, threadIndex int, point core.Vec3, sampler core.Sampler) (LightSample, int, bool) {
	if len(lights) == 0 {
		return LightSample{}, -1, false
	}
	lightIndex, lightSelectionPdf := lightSampler.SampleLight(point, sampler.Get1D())
	if lightIndex < 0 || lightSelectionPdf == 0 {
		return LightSample{}, -1, false
	}

	sample, ok := lights[lightIndex].SampleInboundDirection(threadIndex, point, sampler)
	if !ok {
		return LightSample{}, lightIndex, false
	}
	sample.PDF *= lightSelectionPdf // Combined PDF for MIS calculations

	return sample, lightIndex, true
}

// SampleEmissionDirection samples a cosine-weighted emission direction around normal.
// For two-sided emitters the side is chosen with probability 1/2 using sample.X,
// which halves the direction PDF.
func SampleEmissionDirection(point, normal core.Vec3, areaPDF float64, emitter material.Emitter, sample core.Vec2) EmissionSample {
	backside := false
	sidePDF := 1.0
	if emitter.IsTwoSided() {
		sidePDF = 0.5
		if sample.X < 0.5 {
			sample.X *= 2
		} else {
			sample.X = math.Min(2*sample.X-1, 1)
			normal = normal.Negate()
			backside = true
		}
	}

	emissionDir := core.SampleCosineHemisphere(normal, sample)

	// Calculate direction PDF separately (cosine-weighted)
	cosTheta := emissionDir.Dot(normal)
	directionPDF := sidePDF * core.CosineHemispherePDF(cosTheta)

	return EmissionSample{
		Point:        point,
		Normal:       normal,
		Direction:    emissionDir,
		Emission:     emitter.Emit(backside),
		AreaPDF:      areaPDF,
		DirectionPDF: directionPDF,
	}
}

// EmissionDirectionPDF is the density of SampleEmissionDirection for direction
// leaving a surface with the given front normal
func EmissionDirectionPDF(normal, direction core.Vec3, emitter material.Emitter) float64 {
	cosTheta := direction.Dot(normal)
	if emitter.IsTwoSided() {
		return 0.5 * core.CosineHemispherePDF(math.Abs(cosTheta))
	}
	return core.CosineHemispherePDF(cosTheta)
}

// solidAnglePDF converts a density per unit area into one per unit solid angle
func solidAnglePDF(areaPDF, distanceSquared, cosTheta float64) float64 {
	cosTheta = math.Abs(cosTheta)
	if cosTheta < minLightCosine {
		return 0
	}
	pdf := areaPDF * distanceSquared / cosTheta
	if math.IsNaN(pdf) || math.IsInf(pdf, 0) || pdf < 0 {
		return 0
	}
	return pdf
}
