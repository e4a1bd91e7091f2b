package geometry

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// TriangleMesh is an indexed triangle mesh. Aggregate lights expose one as a
// proxy for code that only understands meshes.
type TriangleMesh struct {
	vertices  []core.Vec3
	faces     []int // three vertex indices per triangle
	materials []int // one material index per triangle
	triangles []*Triangle
	bbox      core.AABB
}

// NewTriangleMesh creates a mesh from vertices, face indices and per-triangle materials
// vertices: array of 3D points
// faces: array of triangle indices (each group of 3 indices forms a triangle)
// materials: one material index per triangle (may be nil for all zero)
func NewTriangleMesh(vertices []core.Vec3, faces []int, materials []int) *TriangleMesh {
	if len(faces)%3 != 0 {
		panic("Face indices must be a multiple of 3")
	}

	numTriangles := len(faces) / 3
	if materials != nil && len(materials) != numTriangles {
		panic("Number of materials must match number of triangles")
	}

	triangles := make([]*Triangle, numTriangles)
	bbox := core.EmptyAABB()
	for i := 0; i < numTriangles; i++ {
		i0, i1, i2 := faces[i*3], faces[i*3+1], faces[i*3+2]
		if i0 >= len(vertices) || i1 >= len(vertices) || i2 >= len(vertices) ||
			i0 < 0 || i1 < 0 || i2 < 0 {
			panic("Face index out of bounds")
		}

		mat := 0
		if materials != nil {
			mat = materials[i]
		}
		triangles[i] = NewTriangle(vertices[i0], vertices[i1], vertices[i2], mat)
		bbox = bbox.Union(triangles[i].BoundingBox())
	}

	return &TriangleMesh{
		vertices:  vertices,
		faces:     faces,
		materials: materials,
		triangles: triangles,
		bbox:      bbox,
	}
}

// NewQuadProxyMesh triangulates every quad into two triangles that keep the quad's winding
func NewQuadProxyMesh(geometry *QuadGeometry) *TriangleMesh {
	n := geometry.Len()
	vertices := make([]core.Vec3, 0, 4*n)
	faces := make([]int, 0, 6*n)
	materials := make([]int, 0, 2*n)

	for i := 0; i < n; i++ {
		q := geometry.Quad(i)
		corners := q.Corners()
		base := len(vertices)
		vertices = append(vertices, corners[0], corners[1], corners[2], corners[3])

		// (c0,c1,c2) and (c0,c2,c3) both wind like Edge0 × Edge1
		faces = append(faces, base, base+1, base+2, base, base+2, base+3)
		materials = append(materials, q.Material, q.Material)
	}

	return NewTriangleMesh(vertices, faces, materials)
}

// Hit returns the closest triangle hit along the ray
func (tm *TriangleMesh) Hit(ray core.Ray, tMin, tMax float64) (int, float64, bool) {
	closest := tMax
	found := -1
	for i, tri := range tm.triangles {
		if !tri.BoundingBox().Expand(boundsPadding).Hit(ray, tMin, closest) {
			continue
		}
		if t, ok := tri.Hit(ray, tMin, closest); ok {
			closest = t
			found = i
		}
	}
	return found, closest, found >= 0
}

// BoundingBox returns the axis-aligned bounding box for the entire mesh
func (tm *TriangleMesh) BoundingBox() core.AABB {
	return tm.bbox
}

// GetTriangleCount returns the number of triangles in this mesh
func (tm *TriangleMesh) GetTriangleCount() int {
	return len(tm.triangles)
}

// Vertices returns the mesh vertex positions
func (tm *TriangleMesh) Vertices() []core.Vec3 {
	return tm.vertices
}

// Faces returns the flat triangle index list
func (tm *TriangleMesh) Faces() []int {
	return tm.faces
}

// TotalArea returns the summed triangle area
func (tm *TriangleMesh) TotalArea() float64 {
	total := 0.0
	for _, tri := range tm.triangles {
		total += tri.Area()
	}
	return total
}

// WriteOBJ writes the mesh in Wavefront OBJ format, one group per material.
// Every face carries its geometric normal so viewers keep the emitting side.
func (tm *TriangleMesh) WriteOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", len(tm.vertices), len(tm.triangles))
	for _, v := range tm.vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
	}
	for _, tri := range tm.triangles {
		n := tri.GetNormal()
		fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
	}

	currentMaterial := -1
	for i, tri := range tm.triangles {
		if tri.Material != currentMaterial {
			currentMaterial = tri.Material
			fmt.Fprintf(bw, "g material_%d\n", currentMaterial)
		}
		// OBJ indices are 1-based
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n",
			tm.faces[i*3]+1, i+1, tm.faces[i*3+1]+1, i+1, tm.faces[i*3+2]+1, i+1)
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}
