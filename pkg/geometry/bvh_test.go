package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// randomQuads scatters small randomly oriented quads inside a 10x10x10 cube
func randomQuads(t *testing.T, n int, seed int64) *QuadGeometry {
	t.Helper()
	random := rand.New(rand.NewSource(seed))
	geom := NewQuadGeometry()
	for geom.Len() < n {
		base := core.NewVec3(random.Float64()*10, random.Float64()*10, random.Float64()*10)
		e0 := core.NewVec3(random.Float64()-0.5, random.Float64()-0.5, random.Float64()-0.5)
		e1 := core.NewVec3(random.Float64()-0.5, random.Float64()-0.5, random.Float64()-0.5)
		// Occasional degenerate draws are simply skipped
		_, _ = geom.AddQuad(base, e0, e1, 0)
	}
	return geom
}

// bruteForceIntersect tests every quad in order
func bruteForceIntersect(geom *QuadGeometry, ray core.Ray, tMin, tMax float64) (int, float64) {
	closest := tMax
	found := -1
	for i := 0; i < geom.Len(); i++ {
		if tHit, _, _, ok := geom.Quad(i).Intersect(ray, tMin, closest); ok {
			closest = tHit
			found = i
		}
	}
	return found, closest
}

// randomDirection is uniform on the unit sphere
func randomDirection(random *rand.Rand) core.Vec3 {
	z := 1 - 2*random.Float64()
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * random.Float64()
	return core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

func TestQuadBVH_MatchesBruteForce(t *testing.T) {
	geom := randomQuads(t, 500, 1)
	bvh := NewQuadBVH(geom)
	random := rand.New(rand.NewSource(2))

	hits := 0
	for i := 0; i < 2000; i++ {
		origin := core.NewVec3(random.Float64()*12-1, random.Float64()*12-1, random.Float64()*12-1)
		direction := randomDirection(random)
		ray := core.NewRay(origin, direction)

		expectedQuad, expectedT := bruteForceIntersect(geom, ray, 0.001, math.Inf(1))
		hit, ok := bvh.Intersect(ray, 0.001, math.Inf(1))

		if ok != (expectedQuad >= 0) {
			t.Fatalf("Ray %d: BVH hit=%v, brute force quad=%d", i, ok, expectedQuad)
		}
		if !ok {
			continue
		}
		hits++
		if math.Abs(hit.T-expectedT) > 1e-9 {
			t.Errorf("Ray %d: BVH t=%f (quad %d), brute force t=%f (quad %d)", i, hit.T, hit.Quad, expectedT, expectedQuad)
		}

		// Occluded must agree with Intersect inside the hit range
		if !bvh.Occluded(ray, 0.001, hit.T+1e-6) {
			t.Errorf("Ray %d: Occluded false although Intersect hit at t=%f", i, hit.T)
		}
		if bvh.Occluded(ray, 0.001, hit.T*0.5) && hit.T*0.5 > 0.001 {
			t.Errorf("Ray %d: Occluded true before the closest hit", i)
		}
	}

	if hits == 0 {
		t.Fatal("Expected some rays to hit the random quads")
	}
}

func TestQuadBVH_Backside(t *testing.T) {
	geom := NewQuadGeometry()
	// Normal +Z
	if _, err := geom.AddQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 0); err != nil {
		t.Fatal(err)
	}
	bvh := NewQuadBVH(geom)

	front, ok := bvh.Intersect(core.NewRay(core.NewVec3(0.5, 0.5, 1), core.NewVec3(0, 0, -1)), 0.001, math.Inf(1))
	if !ok || front.Backside {
		t.Errorf("Expected front hit, got %+v ok=%v", front, ok)
	}
	back, ok := bvh.Intersect(core.NewRay(core.NewVec3(0.5, 0.5, -1), core.NewVec3(0, 0, 1)), 0.001, math.Inf(1))
	if !ok || !back.Backside {
		t.Errorf("Expected back hit, got %+v ok=%v", back, ok)
	}
}

func TestQuadBVH_RespectsRange(t *testing.T) {
	geom := NewQuadGeometry()
	if _, err := geom.AddQuad(core.NewVec3(-1, -1, 2), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), 0); err != nil {
		t.Fatal(err)
	}
	bvh := NewQuadBVH(geom)
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))

	if _, ok := bvh.Intersect(ray, 0.001, 1.5); ok {
		t.Error("Hit beyond tMax must be ignored")
	}
	if bvh.Occluded(ray, 0.001, 1.5) {
		t.Error("Occluded must ignore hits beyond tMax")
	}
	if !bvh.Occluded(ray, 0.001, 2.5) {
		t.Error("Expected occlusion within range")
	}
}

func TestQuadBVH_EmptyAndSingle(t *testing.T) {
	empty := NewQuadBVH(NewQuadGeometry())
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0))
	if _, ok := empty.Intersect(ray, 0.001, 1000); ok {
		t.Error("Expected no hit for empty BVH")
	}
	if empty.Occluded(ray, 0.001, 1000) {
		t.Error("Expected no occlusion for empty BVH")
	}
	if stats := empty.Stats(); stats.TotalNodes != 0 {
		t.Errorf("Expected no nodes, got %d", stats.TotalNodes)
	}

	geom := NewQuadGeometry()
	if _, err := geom.AddQuad(core.NewVec3(2, -1, -1), core.NewVec3(0, 2, 0), core.NewVec3(0, 0, 2), 0); err != nil {
		t.Fatal(err)
	}
	single := NewQuadBVH(geom)
	stats := single.Stats()
	if stats.TotalNodes != 1 || stats.LeafNodes != 1 {
		t.Errorf("Expected a single leaf, got %+v", stats)
	}
	hit, ok := single.Intersect(ray, 0.001, 1000)
	if !ok || hit.Quad != 0 || math.Abs(hit.T-2) > 1e-9 {
		t.Errorf("Expected hit on quad 0 at t=2, got %+v ok=%v", hit, ok)
	}
}

func TestQuadBVH_StatsCoverAllQuads(t *testing.T) {
	geom := randomQuads(t, 300, 3)
	stats := NewQuadBVH(geom).Stats()
	if stats.TotalQuads != geom.Len() {
		t.Errorf("Leaves reference %d quads, expected %d", stats.TotalQuads, geom.Len())
	}
	if stats.LeafNodes < 2 {
		t.Errorf("Expected the tree to split, got %+v", stats)
	}
	if stats.TotalNodes != 2*stats.LeafNodes-1 {
		t.Errorf("Binary tree invariant violated: %+v", stats)
	}
}

func TestQuadBVH_CoplanarGrid(t *testing.T) {
	// A ceiling of coplanar quads yields flat node bounds
	geom := NewQuadGeometry()
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			base := core.NewVec3(float64(i), float64(j), 3)
			if _, err := geom.AddQuad(base, core.NewVec3(0.5, 0, 0), core.NewVec3(0, 0.5, 0), 0); err != nil {
				t.Fatal(err)
			}
		}
	}
	bvh := NewQuadBVH(geom)

	hit, ok := bvh.Intersect(core.NewRay(core.NewVec3(7.25, 11.25, 0), core.NewVec3(0, 0, 1)), 0.001, math.Inf(1))
	if !ok || hit.Quad != 7*20+11 {
		t.Errorf("Expected quad %d, got %+v ok=%v", 7*20+11, hit, ok)
	}
	if _, ok := bvh.Intersect(core.NewRay(core.NewVec3(7.75, 11.25, 0), core.NewVec3(0, 0, 1)), 0.001, math.Inf(1)); ok {
		t.Error("Expected ray through the gap between quads to miss")
	}
}
