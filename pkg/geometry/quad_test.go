package geometry

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// unitQuadXZ is a 1x1 quad in the XZ plane at y=0 with normal -Y (X × Z = -Y)
func unitQuadXZ(t *testing.T) Quad {
	t.Helper()
	quad, err := NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1), 0)
	if err != nil {
		t.Fatalf("NewQuad: %v", err)
	}
	return quad
}

func TestQuad_DerivedValues(t *testing.T) {
	quad, err := NewQuad(core.NewVec3(1, 2, 3), core.NewVec3(2, 0, 0), core.NewVec3(0, 3, 0), 4)
	if err != nil {
		t.Fatalf("NewQuad: %v", err)
	}

	if math.Abs(quad.Area-6) > 1e-12 {
		t.Errorf("Expected area 6, got %f", quad.Area)
	}
	if quad.Normal != core.NewVec3(0, 0, 1) {
		t.Errorf("Expected normal +Z, got %v", quad.Normal)
	}
	if c := quad.Centroid(); c.Subtract(core.NewVec3(2, 3.5, 3)).Length() > 1e-12 {
		t.Errorf("Unexpected centroid %v", c)
	}
	if quad.Material != 4 {
		t.Errorf("Expected material index 4, got %d", quad.Material)
	}
}

func TestQuad_Intersect_BasicIntersection(t *testing.T) {
	quad := unitQuadXZ(t)

	// Ray shooting down at the center of the quad
	ray := core.NewRay(core.NewVec3(0.5, 1, 0.25), core.NewVec3(0, -1, 0))

	tHit, u, v, ok := quad.Intersect(ray, 0.001, 1000.0)
	if !ok {
		t.Fatal("Expected hit, but got miss")
	}
	if math.Abs(tHit-1) > 1e-9 {
		t.Errorf("Expected t=1, got t=%f", tHit)
	}
	if math.Abs(u-0.5) > 1e-9 || math.Abs(v-0.25) > 1e-9 {
		t.Errorf("Expected (u,v)=(0.5,0.25), got (%f,%f)", u, v)
	}
	if p := quad.PointAt(u, v); p.Subtract(ray.At(tHit)).Length() > 1e-9 {
		t.Errorf("PointAt(u,v)=%v does not match hit point %v", p, ray.At(tHit))
	}
}

func TestQuad_Intersect_OutsideBounds(t *testing.T) {
	quad := unitQuadXZ(t)

	tests := []struct {
		name      string
		rayOrigin core.Vec3
		rayDir    core.Vec3
	}{
		{"outside X bounds (negative)", core.NewVec3(-0.5, 1, 0.5), core.NewVec3(0, -1, 0)},
		{"outside X bounds (positive)", core.NewVec3(1.5, 1, 0.5), core.NewVec3(0, -1, 0)},
		{"outside Z bounds (negative)", core.NewVec3(0.5, 1, -0.5), core.NewVec3(0, -1, 0)},
		{"outside Z bounds (positive)", core.NewVec3(0.5, 1, 1.5), core.NewVec3(0, -1, 0)},
		{"parallel ray", core.NewVec3(0.5, 1, 0.5), core.NewVec3(1, 0, 0)},
		{"pointing away", core.NewVec3(0.5, 1, 0.5), core.NewVec3(0, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(tt.rayOrigin, tt.rayDir)
			if tHit, _, _, ok := quad.Intersect(ray, 0.001, 1000.0); ok {
				t.Errorf("Expected miss, but got hit at t=%f", tHit)
			}
		})
	}
}

func TestQuad_Intersect_CornerHits(t *testing.T) {
	quad := unitQuadXZ(t)

	for i, cornerPoint := range quad.Corners() {
		t.Run(fmt.Sprintf("corner_%d", i), func(t *testing.T) {
			ray := core.NewRay(cornerPoint.Add(core.NewVec3(0, 1, 0)), core.NewVec3(0, -1, 0))
			if _, _, _, ok := quad.Intersect(ray, 0.001, 1000.0); !ok {
				t.Errorf("Expected hit at corner %v, but got miss", cornerPoint)
			}
		})
	}
}

func TestQuad_Intersect_BothFaces(t *testing.T) {
	quad := unitQuadXZ(t)

	fromAbove := core.NewRay(core.NewVec3(0.5, 1, 0.5), core.NewVec3(0, -1, 0))
	fromBelow := core.NewRay(core.NewVec3(0.5, -1, 0.5), core.NewVec3(0, 1, 0))
	for _, ray := range []core.Ray{fromAbove, fromBelow} {
		if _, _, _, ok := quad.Intersect(ray, 0.001, 1000.0); !ok {
			t.Errorf("Expected ray %v to hit regardless of face", ray)
		}
	}
}

func TestNewQuad_RejectsDegenerate(t *testing.T) {
	tests := []struct {
		name         string
		edge0, edge1 core.Vec3
	}{
		{"zero edge", core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0)},
		{"parallel edges", core.NewVec3(1, 0, 0), core.NewVec3(2, 0, 0)},
		{"tiny area", core.NewVec3(1e-7, 0, 0), core.NewVec3(0, 1e-7, 0)},
		{"NaN edge", core.NewVec3(math.NaN(), 0, 0), core.NewVec3(0, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuad(core.NewVec3(0, 0, 0), tt.edge0, tt.edge1, 0)
			if !errors.Is(err, ErrDegenerateQuad) {
				t.Errorf("Expected ErrDegenerateQuad, got %v", err)
			}
		})
	}
}

func TestQuadGeometry_AddAndTransform(t *testing.T) {
	geom := NewQuadGeometry()
	if _, err := geom.AddQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 0); err != nil {
		t.Fatalf("AddQuad: %v", err)
	}
	idx, err := geom.AddTransformedQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 1,
		core.Transform{Translate: core.NewVec3(0, 0, 2), Scale: core.NewVec3(2, 2, 1)})
	if err != nil {
		t.Fatalf("AddTransformedQuad: %v", err)
	}
	if idx != 1 || geom.Len() != 2 {
		t.Fatalf("Expected two quads, got len=%d idx=%d", geom.Len(), idx)
	}
	if math.Abs(geom.Quad(1).Area-4) > 1e-12 {
		t.Errorf("Expected scaled area 4, got %f", geom.Quad(1).Area)
	}
	if math.Abs(geom.TotalArea()-5) > 1e-12 {
		t.Errorf("Expected total area 5, got %f", geom.TotalArea())
	}

	bounds := geom.Bounds()
	if bounds.Min != core.NewVec3(0, 0, 0) || bounds.Max != core.NewVec3(2, 2, 2) {
		t.Errorf("Unexpected bounds %v", bounds)
	}

	_, err = geom.AddQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(1, 0, 0), 0)
	if !errors.Is(err, ErrDegenerateQuad) {
		t.Errorf("Expected degenerate quad error, got %v", err)
	}
	if geom.Len() != 2 {
		t.Errorf("Rejected quad must not be stored, len=%d", geom.Len())
	}
}

func TestQuadGeometry_CloneIsIndependent(t *testing.T) {
	geom := NewQuadGeometry()
	if _, err := geom.AddQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 0); err != nil {
		t.Fatalf("AddQuad: %v", err)
	}
	clone := geom.Clone()
	if err := clone.Transform(core.Transform{Translate: core.NewVec3(5, 0, 0), Scale: core.NewVec3(1, 1, 1)}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if geom.Quad(0).Base != core.NewVec3(0, 0, 0) {
		t.Errorf("Transforming the clone changed the original: %v", geom.Quad(0).Base)
	}
	if clone.Quad(0).Base != core.NewVec3(5, 0, 0) {
		t.Errorf("Clone not transformed: %v", clone.Quad(0).Base)
	}
}
