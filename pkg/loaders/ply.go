package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/log"
)

var logger = log.New("loaders")

// Element counts come from the header, so slices start at most this large
// and grow only as records are actually read
const maxPreallocate = 1 << 16

var (
	// ErrNotQuad is returned for faces that do not have exactly four vertices
	ErrNotQuad = errors.New("face is not a quad")

	// ErrNotParallelogram is returned for quad faces whose fourth vertex is
	// too far from the parallelogram spanned by the other three
	ErrNotParallelogram = errors.New("face is not a parallelogram")
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement
}

// PLYElement is an element declaration and its properties, in file order
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData contains the quad faces loaded from a PLY file
type PLYData struct {
	Vertices []core.Vec3 // Vertex positions (x, y, z)
	Colors   []core.Vec3 // Per-vertex colors normalized to [0,1] - empty if not present
	Faces    [][4]int    // Vertex indices of each quad, counter-clockwise around the normal
}

// PLYQuad is a quad face expressed as a parallelogram
type PLYQuad struct {
	Base, Edge0, Edge1 core.Vec3
	Color              core.Vec3 // Average vertex color, zero when the file has no colors
}

// LoadPLY loads a PLY file with quad faces
func LoadPLY(filename string) (*PLYData, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %v", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	logger.Infof("loaded PLY data: %d vertices, %d quads in %v",
		len(data.Vertices), len(data.Faces), time.Since(startTime))
	return data, nil
}

// ReadPLY reads PLY data with quad faces. Elements other than vertex and
// face are skipped.
func ReadPLY(r io.Reader) (*PLYData, error) {
	reader := bufio.NewReader(r)
	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var body plyReader
	switch header.Format {
	case "ascii":
		body = &asciiReader{reader: reader}
	case "binary_little_endian":
		body = &binaryReader{reader: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		body = &binaryReader{reader: reader, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("unsupported PLY format: %s", header.Format)
	}

	data := &PLYData{}
	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			err = readVertices(body, element, data)
		case "face":
			err = readFaces(body, element, data)
		default:
			err = skipElement(body, element)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s data: %w", element.Name, err)
		}
	}

	for i, face := range data.Faces {
		for _, index := range face {
			if index < 0 || index >= len(data.Vertices) {
				return nil, fmt.Errorf("face %d: vertex index %d out of range", i, index)
			}
		}
	}
	return data, nil
}

// parsePLYHeader parses the PLY header, leaving reader at the start of the body
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	first := true

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header: %v", err)
		}
		line = strings.TrimSpace(line)

		if first {
			if line != "ply" {
				return nil, fmt.Errorf("missing ply magic number")
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element definition: %s", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("property before any element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %v", err)
			}
			element := &header.Elements[len(header.Elements)-1]
			element.Properties = append(element.Properties, prop)
		}
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
	}

	if (!prop.IsList && getTypeSize(prop.Type) == 0) ||
		(prop.IsList && (getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0)) {
		return PLYProperty{}, fmt.Errorf("unknown type in property %s", prop.Name)
	}
	return prop, nil
}

// plyReader reads scalar values from the body in either encoding
type plyReader interface {
	value(dataType string) (float64, error)
	endRecord() error
}

type asciiReader struct {
	reader *bufio.Reader
	fields []string
}

func (a *asciiReader) value(dataType string) (float64, error) {
	for len(a.fields) == 0 {
		line, err := a.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return 0, err
		}
		a.fields = strings.Fields(line)
	}
	field := a.fields[0]
	a.fields = a.fields[1:]
	return strconv.ParseFloat(field, 64)
}

// endRecord drops what is left of the current line
func (a *asciiReader) endRecord() error {
	a.fields = nil
	return nil
}

type binaryReader struct {
	reader *bufio.Reader
	order  binary.ByteOrder
}

func (b *binaryReader) value(dataType string) (float64, error) {
	var buf [8]byte
	size := getTypeSize(dataType)
	if _, err := io.ReadFull(b.reader, buf[:size]); err != nil {
		return 0, err
	}
	switch dataType {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(buf[:2]))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(buf[:2])), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(buf[:4]))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(buf[:4])), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(buf[:4]))), nil
	default:
		return math.Float64frombits(b.order.Uint64(buf[:8])), nil
	}
}

func (b *binaryReader) endRecord() error {
	return nil
}

// readList reads a list property and returns its items
func readList(r plyReader, prop PLYProperty) ([]float64, error) {
	count, err := r.value(prop.ListType)
	if err != nil {
		return nil, err
	}
	if count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("invalid list length %v", count)
	}
	items := make([]float64, int(count))
	for i := range items {
		if items[i], err = r.value(prop.DataType); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func readVertices(r plyReader, element PLYElement, data *PLYData) error {
	hasColors, hasPosition := false, false
	for _, prop := range element.Properties {
		switch prop.Name {
		case "x", "y", "z":
			hasPosition = true
		case "red", "green", "blue", "r", "g", "b":
			hasColors = true
		}
	}
	if !hasPosition && element.Count > 0 {
		return fmt.Errorf("vertex element has no x, y or z property")
	}

	size := min(element.Count, maxPreallocate)
	data.Vertices = make([]core.Vec3, 0, size)
	if hasColors {
		data.Colors = make([]core.Vec3, 0, size)
	}

	for i := 0; i < element.Count; i++ {
		var position, color core.Vec3
		for _, prop := range element.Properties {
			if prop.IsList {
				if _, err := readList(r, prop); err != nil {
					return fmt.Errorf("vertex %d: %v", i, err)
				}
				continue
			}
			value, err := r.value(prop.Type)
			if err != nil {
				return fmt.Errorf("vertex %d: %v", i, err)
			}
			switch prop.Name {
			case "x":
				position.X = value
			case "y":
				position.Y = value
			case "z":
				position.Z = value
			case "red", "r":
				color.X = colorValue(prop.Type, value)
			case "green", "g":
				color.Y = colorValue(prop.Type, value)
			case "blue", "b":
				color.Z = colorValue(prop.Type, value)
			}
		}
		if err := r.endRecord(); err != nil {
			return err
		}
		data.Vertices = append(data.Vertices, position)
		if hasColors {
			data.Colors = append(data.Colors, color)
		}
	}
	return nil
}

// colorValue normalizes integer colors from 0-255 to [0,1]
func colorValue(dataType string, value float64) float64 {
	if dataType == "uchar" || dataType == "uint8" {
		return value / 255
	}
	return value
}

func readFaces(r plyReader, element PLYElement, data *PLYData) error {
	data.Faces = make([][4]int, 0, min(element.Count, maxPreallocate))
	for i := 0; i < element.Count; i++ {
		var face [4]int
		found := false
		for _, prop := range element.Properties {
			if !prop.IsList {
				if _, err := r.value(prop.Type); err != nil {
					return fmt.Errorf("face %d: %v", i, err)
				}
				continue
			}
			items, err := readList(r, prop)
			if err != nil {
				return fmt.Errorf("face %d: %v", i, err)
			}
			if prop.Name != "vertex_indices" && prop.Name != "vertex_index" {
				continue
			}
			if len(items) != 4 {
				return fmt.Errorf("face %d: %w: %d vertices", i, ErrNotQuad, len(items))
			}
			for j, item := range items {
				face[j] = int(item)
			}
			found = true
		}
		if !found {
			return fmt.Errorf("face %d: no vertex_indices property", i)
		}
		if err := r.endRecord(); err != nil {
			return err
		}
		data.Faces = append(data.Faces, face)
	}
	return nil
}

func skipElement(r plyReader, element PLYElement) error {
	// Records without properties take no space in the body
	if len(element.Properties) == 0 {
		return nil
	}
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			var err error
			if prop.IsList {
				_, err = readList(r, prop)
			} else {
				_, err = r.value(prop.Type)
			}
			if err != nil {
				return fmt.Errorf("%s %d: %v", element.Name, i, err)
			}
		}
		if err := r.endRecord(); err != nil {
			return err
		}
	}
	return nil
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// Quads converts every face into a parallelogram spanned by its first, second
// and fourth vertex. The third vertex must lie within tolerance times the
// longest edge of the opposite corner.
func (d *PLYData) Quads(tolerance float64) ([]PLYQuad, error) {
	quads := make([]PLYQuad, len(d.Faces))
	for i, face := range d.Faces {
		v0, v1, v2, v3 := d.Vertices[face[0]], d.Vertices[face[1]], d.Vertices[face[2]], d.Vertices[face[3]]
		edge0 := v1.Subtract(v0)
		edge1 := v3.Subtract(v0)

		corner := v0.Add(edge0).Add(edge1)
		scale := math.Max(edge0.Length(), edge1.Length())
		if v2.Subtract(corner).Length() > tolerance*scale {
			return nil, fmt.Errorf("face %d: %w", i, ErrNotParallelogram)
		}

		quads[i] = PLYQuad{Base: v0, Edge0: edge0, Edge1: edge1}
		if len(d.Colors) > 0 {
			sum := core.Vec3{}
			for _, index := range face {
				sum = sum.Add(d.Colors[index])
			}
			quads[i].Color = sum.Multiply(0.25)
		}
	}
	return quads, nil
}
