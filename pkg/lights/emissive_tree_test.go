package lights

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/material"
)

func newEmissiveTestTree(t *testing.T, n int, seed int64) (*EmissiveTree, *geometry.QuadGeometry, []*material.QuadMaterial) {
	t.Helper()
	materials := []*material.QuadMaterial{
		material.NewQuadMaterial("black", core.Vec3{}),
		material.NewQuadMaterial("dim", core.NewVec3(0.5, 0.5, 0.5)),
		material.NewTwoSidedQuadMaterial("bright", core.NewVec3(4, 2, 1)),
	}
	random := rand.New(rand.NewSource(seed))
	geom := geometry.NewQuadGeometry()
	for geom.Len() < n {
		base := core.NewVec3(random.Float64()*10, random.Float64()*10, random.Float64()*10)
		e0 := core.NewVec3(random.Float64()*2, 0, random.Float64()-0.5)
		e1 := core.NewVec3(0, random.Float64()*2, random.Float64()-0.5)
		_, _ = geom.AddQuad(base, e0, e1, random.Intn(len(materials)))
	}
	return NewEmissiveTree(geom, materials), geom, materials
}

func TestEmissiveTree_PickProbabilityMatchesProduct(t *testing.T) {
	tree, geom, _ := newEmissiveTestTree(t, 300, 1)
	random := rand.New(rand.NewSource(2))

	for i := 0; i < 5000; i++ {
		quad, prob, ok := tree.Pick(random.Float64())
		if !ok {
			t.Fatal("pick failed")
		}
		if quad < 0 || quad >= geom.Len() {
			t.Fatalf("picked quad %d out of range", quad)
		}
		want := tree.Probability(quad)
		if want == 0 {
			t.Fatalf("picked zero power quad %d", quad)
		}
		if math.Abs(prob-want) > 1e-9*want {
			t.Fatalf("pick probability %v, Probability %v", prob, want)
		}
	}
}

func TestEmissiveTree_ProbabilitiesSumToOne(t *testing.T) {
	tree, geom, _ := newEmissiveTestTree(t, 257, 3)
	sum := 0.0
	for i := 0; i < geom.Len(); i++ {
		sum += tree.Probability(i)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}
}

func TestEmissiveTree_FrequenciesFollowPower(t *testing.T) {
	materials := []*material.QuadMaterial{
		material.NewQuadMaterial("one", core.NewVec3(1, 1, 1)),
		material.NewQuadMaterial("three", core.NewVec3(3, 3, 3)),
	}
	geom := geometry.NewQuadGeometry()
	for i := 0; i < 4; i++ {
		base := core.NewVec3(float64(i)*2, 0, 0)
		if _, err := geom.AddQuad(base, core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), i%2); err != nil {
			t.Fatal(err)
		}
	}
	tree := NewEmissiveTree(geom, materials)

	const n = 100000
	counts := make([]int, geom.Len())
	random := rand.New(rand.NewSource(4))
	for i := 0; i < n; i++ {
		quad, _, _ := tree.Pick(random.Float64())
		counts[quad]++
	}

	expected := []float64{0.125, 0.375, 0.125, 0.375}
	for i, count := range counts {
		if got := float64(count) / n; math.Abs(got-expected[i]) > 0.01 {
			t.Errorf("quad %d: frequency %v, expected %v", i, got, expected[i])
		}
	}
}

func TestEmissiveTree_ZeroPower(t *testing.T) {
	tests := []struct {
		name  string
		quads int
	}{
		{"empty", 0},
		{"black quads", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom := geometry.NewQuadGeometry()
			for i := 0; i < tt.quads; i++ {
				if _, err := geom.AddQuad(core.NewVec3(float64(i), 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 0); err != nil {
					t.Fatal(err)
				}
			}
			tree := NewEmissiveTree(geom, []*material.QuadMaterial{material.NewQuadMaterial("black", core.Vec3{})})
			if _, _, ok := tree.Pick(0.5); ok {
				t.Error("pick should fail without power")
			}
			if tree.Probability(0) != 0 {
				t.Error("probability should be zero without power")
			}
		})
	}
}

func TestQuadPower(t *testing.T) {
	q, err := geometry.NewQuad(core.Vec3{}, core.NewVec3(2, 0, 0), core.NewVec3(0, 3, 0), 0)
	if err != nil {
		t.Fatal(err)
	}
	one := material.NewQuadMaterial("one", core.NewVec3(1, 1, 1))
	two := material.NewTwoSidedQuadMaterial("two", core.NewVec3(1, 1, 1))

	if got := QuadPower(&q, one); math.Abs(got-6*math.Pi) > 1e-12 {
		t.Errorf("one-sided power = %v, want 6π", got)
	}
	if got := QuadPower(&q, two); math.Abs(got-12*math.Pi) > 1e-12 {
		t.Errorf("two-sided power = %v, want 12π", got)
	}
}
