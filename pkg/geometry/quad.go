package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// ErrDegenerateQuad is returned for quads with (nearly) zero area or non-finite coordinates
var ErrDegenerateQuad = errors.New("degenerate quad")

const (
	// Quads smaller than this are rejected at construction time
	minQuadArea = 1e-12

	// Minimum sine of the angle between the two edges
	minEdgeSine = 1e-9
)

// Quad represents a parallelogram defined by a base corner and two edge vectors
type Quad struct {
	Base     core.Vec3 // One corner of the quad
	Edge0    core.Vec3 // First edge vector
	Edge1    core.Vec3 // Second edge vector
	Material int       // Index into the owning light's material list

	Normal core.Vec3 // Unit normal (Edge0 × Edge1 normalized)
	Area   float64   // |Edge0 × Edge1|
	D      float64   // Plane equation constant: normal · base
	W      core.Vec3 // Cached cross product for parametric coordinates
}

// NewQuad creates a quad from a base corner and two edge vectors
func NewQuad(base, edge0, edge1 core.Vec3, material int) (Quad, error) {
	if !base.IsFinite() || !edge0.IsFinite() || !edge1.IsFinite() {
		return Quad{}, fmt.Errorf("%w: non-finite coordinates", ErrDegenerateQuad)
	}

	cross := edge0.Cross(edge1)
	area := cross.Length()
	if area <= minQuadArea || area <= minEdgeSine*edge0.Length()*edge1.Length() {
		return Quad{}, fmt.Errorf("%w: area %g", ErrDegenerateQuad, area)
	}

	normal := cross.Multiply(1 / area)

	// w = n / (n · (u × v)) lets us recover (alpha, beta) with two dot products
	w := normal.Multiply(1.0 / normal.Dot(cross))

	return Quad{
		Base:     base,
		Edge0:    edge0,
		Edge1:    edge1,
		Material: material,
		Normal:   normal,
		Area:     area,
		D:        normal.Dot(base),
		W:        w,
	}, nil
}

// Transformed returns the quad with its corner transformed as a point and its edges as vectors
func (q Quad) Transformed(t core.Transform) (Quad, error) {
	return NewQuad(t.Point(q.Base), t.Vector(q.Edge0), t.Vector(q.Edge1), q.Material)
}

// Centroid returns the center of the parallelogram
func (q Quad) Centroid() core.Vec3 {
	return q.Base.Add(q.Edge0.Multiply(0.5)).Add(q.Edge1.Multiply(0.5))
}

// PointAt returns the point at parametric coordinates (u, v) in [0,1]²
func (q Quad) PointAt(u, v float64) core.Vec3 {
	return q.Base.Add(q.Edge0.Multiply(u)).Add(q.Edge1.Multiply(v))
}

// Corners returns the four corners in winding order
func (q Quad) Corners() [4]core.Vec3 {
	return [4]core.Vec3{
		q.Base,
		q.Base.Add(q.Edge0),
		q.Base.Add(q.Edge0).Add(q.Edge1),
		q.Base.Add(q.Edge1),
	}
}

// BoundingBox returns the axis-aligned bounding box of the quad
func (q Quad) BoundingBox() core.AABB {
	c := q.Corners()
	return core.NewAABBFromPoints(c[0], c[1], c[2], c[3])
}

// Intersect tests if a ray intersects the quad, returning the ray parameter and
// parametric coordinates of the hit. Both faces are hit.
func (q *Quad) Intersect(ray core.Ray, tMin, tMax float64) (t, u, v float64, ok bool) {
	denominator := ray.Direction.Dot(q.Normal)

	// Ray is parallel to the quad
	if math.Abs(denominator) < 1e-12 {
		return 0, 0, 0, false
	}

	t = (q.D - ray.Origin.Dot(q.Normal)) / denominator
	if t < tMin || t > tMax {
		return 0, 0, 0, false
	}

	hitVector := ray.At(t).Subtract(q.Base)
	u = q.W.Dot(hitVector.Cross(q.Edge1))
	v = q.W.Dot(q.Edge0.Cross(hitVector))
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, 0, false
	}

	return t, u, v, true
}

// QuadGeometry stores every quad of an aggregate in one flat slice
type QuadGeometry struct {
	quads []Quad
}

// NewQuadGeometry creates an empty quad store
func NewQuadGeometry() *QuadGeometry {
	return &QuadGeometry{}
}

// AddQuad validates and appends a quad, returning its index
func (g *QuadGeometry) AddQuad(base, edge0, edge1 core.Vec3, material int) (int, error) {
	q, err := NewQuad(base, edge0, edge1, material)
	if err != nil {
		return -1, fmt.Errorf("quad %d: %w", len(g.quads), err)
	}
	g.quads = append(g.quads, q)
	return len(g.quads) - 1, nil
}

// AddTransformedQuad applies t to the quad before appending it
func (g *QuadGeometry) AddTransformedQuad(base, edge0, edge1 core.Vec3, material int, t core.Transform) (int, error) {
	return g.AddQuad(t.Point(base), t.Vector(edge0), t.Vector(edge1), material)
}

// Len returns the number of quads
func (g *QuadGeometry) Len() int {
	return len(g.quads)
}

// Quad returns the quad at index i
func (g *QuadGeometry) Quad(i int) *Quad {
	return &g.quads[i]
}

// Bounds returns the union of all quad bounding boxes
func (g *QuadGeometry) Bounds() core.AABB {
	bounds := core.EmptyAABB()
	for i := range g.quads {
		bounds = bounds.Union(g.quads[i].BoundingBox())
	}
	return bounds
}

// TotalArea returns the summed area of all quads
func (g *QuadGeometry) TotalArea() float64 {
	total := 0.0
	for i := range g.quads {
		total += g.quads[i].Area
	}
	return total
}

// Transform applies t to every quad in place
func (g *QuadGeometry) Transform(t core.Transform) error {
	transformed := make([]Quad, len(g.quads))
	for i := range g.quads {
		q, err := g.quads[i].Transformed(t)
		if err != nil {
			return fmt.Errorf("quad %d: %w", i, err)
		}
		transformed[i] = q
	}
	g.quads = transformed
	return nil
}

// Clone returns an independent copy of the store
func (g *QuadGeometry) Clone() *QuadGeometry {
	quads := make([]Quad, len(g.quads))
	copy(quads, g.quads)
	return &QuadGeometry{quads: quads}
}
