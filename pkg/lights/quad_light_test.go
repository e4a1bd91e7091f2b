package lights

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// unitQuadLight is a unit square in the XY plane facing +Z
func unitQuadLight(t *testing.T, mat *material.QuadMaterial) *QuadLight {
	t.Helper()
	light, err := NewQuadLight(core.NewVec3(-0.5, -0.5, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), mat)
	if err != nil {
		t.Fatal(err)
	}
	return light
}

func TestQuadLight_Sample_BasicSampling(t *testing.T) {
	const tolerance = 1e-9

	emission := core.NewVec3(5.0, 5.0, 5.0)
	light := unitQuadLight(t, material.NewQuadMaterial("light", emission))

	// Sample point from above the quad
	shadingPoint := core.NewVec3(0, 0, 2)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	sample, ok := light.SampleInboundDirection(0, shadingPoint, sampler)
	if !ok {
		t.Fatal("expected a sample")
	}

	// Verify sample is on the quad surface (Z should be 0)
	if math.Abs(sample.Point.Z) > tolerance {
		t.Errorf("Sample point not on quad surface: Z = %f, expected = 0", sample.Point.Z)
	}

	// Verify sample is within quad bounds
	if sample.Point.X < -0.5 || sample.Point.X > 0.5 ||
		sample.Point.Y < -0.5 || sample.Point.Y > 0.5 {
		t.Errorf("Sample point outside quad bounds: %v", sample.Point)
	}

	// Verify direction points from shading point to light sample
	expectedDirection := sample.Point.Subtract(shadingPoint).Normalize()
	if sample.Direction.Subtract(expectedDirection).Length() > tolerance {
		t.Errorf("Direction incorrect: got %v, expected %v", sample.Direction, expectedDirection)
	}

	if sample.PDF <= 0 {
		t.Errorf("Expected positive PDF, got %f", sample.PDF)
	}
	if sample.Emission != emission {
		t.Errorf("Emission incorrect: got %v, expected %v", sample.Emission, emission)
	}
}

func TestQuadLight_Sample_Sidedness(t *testing.T) {
	tests := []struct {
		name   string
		mat    *material.QuadMaterial
		point  core.Vec3
		expect bool
	}{
		{"front of one-sided", material.NewQuadMaterial("one", core.NewVec3(1, 1, 1)), core.NewVec3(0, 0, 1), true},
		{"back of one-sided", material.NewQuadMaterial("one", core.NewVec3(1, 1, 1)), core.NewVec3(0, 0, -1), false},
		{"back of two-sided", material.NewTwoSidedQuadMaterial("two", core.NewVec3(1, 1, 1)), core.NewVec3(0, 0, -1), true},
		{"in the quad plane", material.NewQuadMaterial("one", core.NewVec3(1, 1, 1)), core.NewVec3(2, 0, 0), false},
		{"non-emissive", material.NewQuadMaterial("black", core.Vec3{}), core.NewVec3(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			light := unitQuadLight(t, tt.mat)
			sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))
			_, ok := light.SampleInboundDirection(0, tt.point, sampler)
			if ok != tt.expect {
				t.Errorf("sample ok = %v, expected %v", ok, tt.expect)
			}
		})
	}
}

func TestQuadLight_PDF(t *testing.T) {
	light := unitQuadLight(t, material.NewQuadMaterial("light", core.NewVec3(1, 1, 1)))

	tests := []struct {
		name      string
		point     core.Vec3
		direction core.Vec3
		expectHit bool
	}{
		{
			name:      "Direction hits center of quad",
			point:     core.NewVec3(0, 0, 2),
			direction: core.NewVec3(0, 0, -1),
			expectHit: true,
		},
		{
			name:      "Direction hits corner of quad",
			point:     core.NewVec3(-0.5, -0.5, 2),
			direction: core.NewVec3(0, 0, -1),
			expectHit: true,
		},
		{
			name:      "Direction misses quad",
			point:     core.NewVec3(0, 0, 2),
			direction: core.NewVec3(1, 1, -1).Normalize(),
			expectHit: false,
		},
		{
			name:      "Direction away from quad",
			point:     core.NewVec3(0, 0, 2),
			direction: core.NewVec3(0, 0, 1),
			expectHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf := light.InboundPdf(0, tt.point, tt.direction)

			if !tt.expectHit {
				if pdf != 0 {
					t.Errorf("Expected PDF = 0 for direction that misses quad, got %f", pdf)
				}
				return
			}

			if pdf <= 0 {
				t.Errorf("Expected positive PDF for hit, got %f", pdf)
			}
		})
	}
}

func TestQuadLight_PDF_SolidAngleCalculation(t *testing.T) {
	const tolerance = 1e-6
	light := unitQuadLight(t, material.NewQuadMaterial("light", core.NewVec3(1, 1, 1)))

	// For a unit square at distance 1, with normal aligned with ray:
	// PDF = (1/Area) * distance² / cosTheta = 1 * 1 / 1 = 1
	pdf := light.InboundPdf(0, core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	if math.Abs(pdf-1.0) > tolerance {
		t.Errorf("PDF calculation incorrect: got %f, expected %f", pdf, 1.0)
	}
}

func TestQuadLight_SampleMatchesPDF(t *testing.T) {
	light := unitQuadLight(t, material.NewQuadMaterial("light", core.NewVec3(1, 1, 1)))
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(3)))
	point := core.NewVec3(0.7, -0.2, 1.3)

	for i := 0; i < 100; i++ {
		sample, ok := light.SampleInboundDirection(0, point, sampler)
		if !ok {
			t.Fatal("expected a sample")
		}
		pdf := light.InboundPdf(0, point, sample.Direction)
		if math.Abs(pdf-sample.PDF) > 1e-9*sample.PDF {
			t.Fatalf("sample PDF %v, evaluated PDF %v", sample.PDF, pdf)
		}
	}
}

func TestQuadLight_SampleEmission_BasicProperties(t *testing.T) {
	const tolerance = 1e-9

	emission := core.NewVec3(2.0, 3.0, 4.0)
	light := unitQuadLight(t, material.NewQuadMaterial("light", emission))
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	for i := 0; i < 100; i++ {
		sample, ok := light.SampleOutboundDirection(0, sampler)
		if !ok {
			t.Fatal("expected an emission sample")
		}

		if math.Abs(sample.Point.Z) > tolerance {
			t.Errorf("Emission point not on quad: %v", sample.Point)
		}
		if sample.Direction.Dot(sample.Normal) < 0 {
			t.Errorf("Emission direction %v below the surface", sample.Direction)
		}
		if math.Abs(sample.AreaPDF-1.0) > tolerance {
			t.Errorf("AreaPDF = %f, expected 1", sample.AreaPDF)
		}
		expectedDirPDF := sample.Direction.Dot(sample.Normal) / math.Pi
		if math.Abs(sample.DirectionPDF-expectedDirPDF) > tolerance {
			t.Errorf("DirectionPDF = %f, expected %f", sample.DirectionPDF, expectedDirPDF)
		}
		if sample.Emission != emission {
			t.Errorf("Emission = %v, expected %v", sample.Emission, emission)
		}

		pdfPos, pdfDir := light.EmissionPdf(sample.Point, sample.Direction)
		if math.Abs(pdfPos-sample.AreaPDF) > tolerance || math.Abs(pdfDir-sample.DirectionPDF) > tolerance {
			t.Errorf("EmissionPdf = (%f, %f), sample = (%f, %f)", pdfPos, pdfDir, sample.AreaPDF, sample.DirectionPDF)
		}
	}
}

func TestQuadLight_EmissionPdf_OffSurface(t *testing.T) {
	light := unitQuadLight(t, material.NewQuadMaterial("light", core.NewVec3(1, 1, 1)))

	tests := []struct {
		name  string
		point core.Vec3
	}{
		{"outside the edges", core.NewVec3(2, 0, 0)},
		{"above the plane", core.NewVec3(0, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfPos, pdfDir := light.EmissionPdf(tt.point, core.NewVec3(0, 0, 1))
			if pdfPos != 0 || pdfDir != 0 {
				t.Errorf("EmissionPdf = (%f, %f), expected zero", pdfPos, pdfDir)
			}
		})
	}
}

func TestQuadLight_ApproximateRadiance(t *testing.T) {
	light := unitQuadLight(t, material.NewQuadMaterial("light", core.NewVec3(2, 2, 2)))

	// Unit square seen from height 1: 4*asin(1/5) steradians
	want := 2 * 4 * math.Asin(0.2)
	if got := light.ApproximateRadiance(0, core.NewVec3(0, 0, 1)); math.Abs(got-want) > 1e-9 {
		t.Errorf("ApproximateRadiance = %v, want %v", got, want)
	}
	if got := light.ApproximateRadiance(0, core.NewVec3(0, 0, -1)); got != 0 {
		t.Errorf("ApproximateRadiance behind = %v, want 0", got)
	}
}

func TestNewQuadLight_Errors(t *testing.T) {
	mat := material.NewQuadMaterial("light", core.NewVec3(1, 1, 1))
	if _, err := NewQuadLight(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(2, 0, 0), mat); err == nil {
		t.Error("expected an error for parallel edges")
	}
	bad := material.NewQuadMaterial("bad", core.NewVec3(math.Inf(1), 0, 0))
	if _, err := NewQuadLight(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), bad); err == nil {
		t.Error("expected an error for infinite emission")
	}
}
