package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-multiquad-light/pkg/core"
)

const asciiPLY = `ply
format ascii 1.0
comment two unit quads side by side
element vertex 6
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
element face 2
property list uchar int vertex_indices
element edge 1
property int vertex1
property int vertex2
end_header
0 0 0 255 0 0
1 0 0 255 0 0
1 1 0 255 0 0
0 1 0 255 0 0
2 0 0 0 0 255
2 1 0 0 0 255
4 0 1 2 3
4 1 4 5 2
0 1
`

// createBinaryPLY writes a single quad in the given byte order
func createBinaryPLY(t *testing.T, order binary.ByteOrder, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format " + format + " 1.0\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\n")
	buf.WriteString("property float y\n")
	buf.WriteString("property double z\n")
	buf.WriteString("element face 1\n")
	buf.WriteString("property uchar flags\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	vertices := []struct {
		x, y float32
		z    float64
	}{
		{0, 0, 2}, {2, 0, 2}, {2, 3, 2}, {0, 3, 2},
	}
	for _, v := range vertices {
		binary.Write(&buf, order, v.x)
		binary.Write(&buf, order, v.y)
		binary.Write(&buf, order, v.z)
	}
	binary.Write(&buf, order, uint8(7)) // flags
	binary.Write(&buf, order, uint8(4))
	binary.Write(&buf, order, [4]int32{0, 1, 2, 3})
	return buf.Bytes()
}

func TestReadPLY_ASCII(t *testing.T) {
	data, err := ReadPLY(strings.NewReader(asciiPLY))
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	if len(data.Vertices) != 6 || len(data.Faces) != 2 || len(data.Colors) != 6 {
		t.Fatalf("got %d vertices, %d faces, %d colors", len(data.Vertices), len(data.Faces), len(data.Colors))
	}
	if data.Faces[1] != [4]int{1, 4, 5, 2} {
		t.Errorf("face 1 = %v", data.Faces[1])
	}
	if data.Colors[4] != core.NewVec3(0, 0, 1) {
		t.Errorf("color 4 = %v, want blue", data.Colors[4])
	}

	quads, err := data.Quads(1e-6)
	if err != nil {
		t.Fatalf("Quads: %v", err)
	}
	for i, q := range quads {
		area := q.Edge0.Cross(q.Edge1).Length()
		if math.Abs(area-1) > 1e-9 {
			t.Errorf("quad %d area = %v, want 1", i, area)
		}
		// Counter-clockwise faces in the xy plane face +z
		if n := q.Edge0.Cross(q.Edge1); n.Z <= 0 {
			t.Errorf("quad %d normal %v should face +z", i, n)
		}
	}
	if quads[0].Color != core.NewVec3(1, 0, 0) {
		t.Errorf("quad 0 color = %v", quads[0].Color)
	}
	if got := quads[1].Color; math.Abs(got.X-0.5) > 1e-12 || math.Abs(got.Z-0.5) > 1e-12 {
		t.Errorf("quad 1 color = %v, want the average of red and blue", got)
	}
}

func TestReadPLY_Binary(t *testing.T) {
	tests := []struct {
		name   string
		order  binary.ByteOrder
		format string
	}{
		{"little endian", binary.LittleEndian, "binary_little_endian"},
		{"big endian", binary.BigEndian, "binary_big_endian"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ReadPLY(bytes.NewReader(createBinaryPLY(t, tt.order, tt.format)))
			if err != nil {
				t.Fatalf("ReadPLY: %v", err)
			}
			if len(data.Vertices) != 4 || len(data.Faces) != 1 || len(data.Colors) != 0 {
				t.Fatalf("got %d vertices, %d faces, %d colors", len(data.Vertices), len(data.Faces), len(data.Colors))
			}
			if data.Vertices[2] != core.NewVec3(2, 3, 2) {
				t.Errorf("vertex 2 = %v", data.Vertices[2])
			}

			quads, err := data.Quads(1e-6)
			if err != nil {
				t.Fatalf("Quads: %v", err)
			}
			q := quads[0]
			if q.Base != core.NewVec3(0, 0, 2) || q.Edge0 != core.NewVec3(2, 0, 0) || q.Edge1 != core.NewVec3(0, 3, 0) {
				t.Errorf("quad = %+v", q)
			}
			if !q.Color.IsZero() {
				t.Errorf("color without vertex colors = %v", q.Color)
			}
		})
	}
}

func TestReadPLY_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"bad magic", "plx\nformat ascii 1.0\nend_header\n", nil},
		{"unknown format", "ply\nformat binary_middle_endian 1.0\nend_header\n", nil},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nend_header\n0\n", nil},
		{"truncated header", "ply\nformat ascii 1.0\nelement vertex 1\n", nil},
		{"triangle", "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\n" +
			"element face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n1 0 0\n0 1 0\n3 0 1 2\n", ErrNotQuad},
		{"index out of range", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\n" +
			"element face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n4 0 0 0 9\n", nil},
		{"huge vertex count", "ply\nformat ascii 1.0\nelement vertex 9000000000000000000\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", nil},
		{"huge face count", "ply\nformat ascii 1.0\nelement vertex 4\nproperty float x\nproperty float y\nproperty float z\n" +
			"element face 4000000000\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n1 0 0\n1 1 0\n0 1 0\n4 0 1 2 3\n", nil},
		{"vertex without position", "ply\nformat ascii 1.0\nelement vertex 9000000000000000000\nproperty uchar red\nend_header\n", nil},
		{"truncated body", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPLYData_QuadsRejectsSkewedFaces(t *testing.T) {
	data := &PLYData{
		Vertices: []core.Vec3{
			core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(1.2, 1, 0), core.NewVec3(0, 1, 0),
		},
		Faces: [][4]int{{0, 1, 2, 3}},
	}

	if _, err := data.Quads(1e-3); !errors.Is(err, ErrNotParallelogram) {
		t.Errorf("expected ErrNotParallelogram, got %v", err)
	}
	// A loose tolerance accepts the face as the parallelogram of its first three corners
	quads, err := data.Quads(0.5)
	if err != nil {
		t.Fatalf("Quads: %v", err)
	}
	if quads[0].Edge0 != core.NewVec3(1, 0, 0) || quads[0].Edge1 != core.NewVec3(0, 1, 0) {
		t.Errorf("quad = %+v", quads[0])
	}
}

func TestLoadPLY(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "quads.ply")
	if err := os.WriteFile(filename, []byte(asciiPLY), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := LoadPLY(filename)
	if err != nil {
		t.Fatalf("LoadPLY: %v", err)
	}
	if len(data.Faces) != 2 {
		t.Errorf("got %d faces", len(data.Faces))
	}

	if _, err := LoadPLY(filepath.Join(t.TempDir(), "missing.ply")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
