package core

import (
	"math"
	"math/rand"
	"testing"
)

func TestSampleCosineHemisphere_StaysInHemisphere(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 0, 1),
		NewVec3(0, -1, 0),
		NewVec3(1, 1, 1).Normalize(),
	}
	sampler := NewRandomSampler(rand.New(rand.NewSource(7)))

	for _, normal := range normals {
		meanCos := 0.0
		const n = 20000
		for i := 0; i < n; i++ {
			dir := SampleCosineHemisphere(normal, sampler.Get2D())
			if math.Abs(dir.Length()-1) > 1e-9 {
				t.Fatalf("Direction not normalized: %v", dir)
			}
			cos := dir.Dot(normal)
			if cos < -1e-12 {
				t.Fatalf("Direction %v below hemisphere of %v", dir, normal)
			}
			meanCos += cos
		}
		meanCos /= n

		// E[cos] under cos/pi density is 2/3
		if math.Abs(meanCos-2.0/3.0) > 0.01 {
			t.Errorf("Mean cosine for normal %v: got %f, expected %f", normal, meanCos, 2.0/3.0)
		}
	}
}

func TestCosineHemispherePDF(t *testing.T) {
	if pdf := CosineHemispherePDF(-0.5); pdf != 0 {
		t.Errorf("Expected zero PDF below horizon, got %f", pdf)
	}
	if pdf := CosineHemispherePDF(1); math.Abs(pdf-1/math.Pi) > 1e-12 {
		t.Errorf("Expected 1/pi at normal incidence, got %f", pdf)
	}
}

func TestPowerHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		nf       int
		fPdf     float64
		ng       int
		gPdf     float64
		expected float64
	}{
		{
			name:     "Equal PDFs",
			nf:       1,
			fPdf:     0.5,
			ng:       1,
			gPdf:     0.5,
			expected: 0.5,
		},
		{
			name:     "First PDF zero",
			nf:       1,
			fPdf:     0.0,
			ng:       1,
			gPdf:     0.5,
			expected: 0.0,
		},
		{
			name:     "Second PDF zero",
			nf:       1,
			fPdf:     0.5,
			ng:       1,
			gPdf:     0.0,
			expected: 1.0,
		},
		{
			name:     "First PDF higher",
			nf:       1,
			fPdf:     0.8,
			ng:       1,
			gPdf:     0.2,
			expected: 0.941176, // (0.8²) / (0.8² + 0.2²)
		},
		{
			name:     "Both zero",
			nf:       1,
			fPdf:     0,
			ng:       1,
			gPdf:     0,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PowerHeuristic(tt.nf, tt.fPdf, tt.ng, tt.gPdf)
			if math.Abs(result-tt.expected) > 1e-5 {
				t.Errorf("PowerHeuristic: got %f, expected %f", result, tt.expected)
			}
		})
	}
}

func TestBalanceHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		nf       int
		fPdf     float64
		ng       int
		gPdf     float64
		expected float64
	}{
		{
			name:     "Equal PDFs",
			nf:       1,
			fPdf:     0.5,
			ng:       1,
			gPdf:     0.5,
			expected: 0.5,
		},
		{
			name:     "Second PDF zero",
			nf:       1,
			fPdf:     0.5,
			ng:       1,
			gPdf:     0.0,
			expected: 1.0,
		},
		{
			name:     "First PDF higher",
			nf:       1,
			fPdf:     0.8,
			ng:       1,
			gPdf:     0.2,
			expected: 0.8, // 0.8 / (0.8 + 0.2)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BalanceHeuristic(tt.nf, tt.fPdf, tt.ng, tt.gPdf)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("BalanceHeuristic: got %f, expected %f", result, tt.expected)
			}
		})
	}
}
