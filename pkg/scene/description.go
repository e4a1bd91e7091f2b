package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/lights"
	"github.com/df07/go-multiquad-light/pkg/material"
)

var (
	// ErrUnknownMaterial is returned when a quad names a material that is not declared
	ErrUnknownMaterial = errors.New("unknown material")

	// ErrDuplicateMaterial is returned when two materials share a name
	ErrDuplicateMaterial = errors.New("duplicate material")

	// ErrInvalidReceiver is returned for receivers with a zero or non-finite normal
	ErrInvalidReceiver = errors.New("invalid receiver")
)

// Description is the serialized form of an aggregate quad light
type Description struct {
	Name      string                `json:"name,omitempty"`
	Materials []MaterialDescription `json:"materials"`
	Quads     []QuadDescription     `json:"quads"`
	Receivers []ReceiverDescription `json:"receivers,omitempty"`
}

// MaterialDescription declares an emissive material referenced by name
type MaterialDescription struct {
	Name     string     `json:"name"`
	Emission [3]float64 `json:"emission"`
	TwoSided bool       `json:"twoSided,omitempty"`
}

// QuadDescription is a parallelogram with an optional per-quad transform
type QuadDescription struct {
	Base      [3]float64            `json:"base"`
	Edge0     [3]float64            `json:"edge0"`
	Edge1     [3]float64            `json:"edge1"`
	Material  string                `json:"material"`
	Transform *TransformDescription `json:"transform,omitempty"`
}

// TransformDescription is scale, then rotation (degrees), then translation.
// A missing scale means no scaling.
type TransformDescription struct {
	Translate [3]float64  `json:"translate"`
	Rotate    [3]float64  `json:"rotate"`
	Scale     *[3]float64 `json:"scale,omitempty"`
}

// ReceiverDescription is a surface point at which direct lighting is estimated
type ReceiverDescription struct {
	Point  [3]float64 `json:"point"`
	Normal [3]float64 `json:"normal"`
}

func vec3(v [3]float64) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

func array3(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// toTransform converts the description into a core.Transform
func (t *TransformDescription) toTransform() core.Transform {
	transform := core.IdentityTransform()
	if t == nil {
		return transform
	}
	transform.Translate = vec3(t.Translate)
	transform.Rotate = vec3(t.Rotate)
	if t.Scale != nil {
		transform.Scale = vec3(*t.Scale)
	}
	return transform
}

// Load decodes a description from JSON. Unknown fields are rejected.
func Load(r io.Reader) (*Description, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var desc Description
	if err := decoder.Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}
	return &desc, nil
}

// LoadFile reads a description from a JSON file
func LoadFile(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	desc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// Save encodes the description as indented JSON
func (d *Description) Save(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}

// SaveFile writes the description to a JSON file
func (d *Description) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// BuildMaterials converts the material list, checking names are unique
func (d *Description) BuildMaterials() ([]*material.QuadMaterial, map[string]int, error) {
	materials := make([]*material.QuadMaterial, 0, len(d.Materials))
	index := make(map[string]int, len(d.Materials))
	for i, m := range d.Materials {
		if _, exists := index[m.Name]; exists {
			return nil, nil, fmt.Errorf("material %d: %w: %q", i, ErrDuplicateMaterial, m.Name)
		}
		mat := &material.QuadMaterial{Name: m.Name, Emission: vec3(m.Emission), TwoSided: m.TwoSided}
		if err := mat.Validate(); err != nil {
			return nil, nil, err
		}
		index[m.Name] = len(materials)
		materials = append(materials, mat)
	}
	return materials, index, nil
}

// BuildGeometry converts the quads, applying their transforms
func (d *Description) BuildGeometry(materialIndex map[string]int) (*geometry.QuadGeometry, error) {
	geom := geometry.NewQuadGeometry()
	for i, q := range d.Quads {
		m, ok := materialIndex[q.Material]
		if !ok {
			return nil, fmt.Errorf("quad %d: %w: %q", i, ErrUnknownMaterial, q.Material)
		}
		if _, err := geom.AddTransformedQuad(vec3(q.Base), vec3(q.Edge0), vec3(q.Edge1), m, q.Transform.toTransform()); err != nil {
			return nil, err
		}
	}
	return geom, nil
}

// Build creates the aggregate light and receivers described by d
func (d *Description) Build() (*Scene, error) {
	materials, index, err := d.BuildMaterials()
	if err != nil {
		return nil, err
	}
	geom, err := d.BuildGeometry(index)
	if err != nil {
		return nil, err
	}
	light, err := lights.NewMultiQuadLight(geom, materials)
	if err != nil {
		return nil, err
	}

	receivers := make([]Receiver, len(d.Receivers))
	for i, r := range d.Receivers {
		point, normal := vec3(r.Point), vec3(r.Normal)
		if !point.IsFinite() || !normal.IsFinite() || normal.IsZero() {
			return nil, fmt.Errorf("receiver %d: %w", i, ErrInvalidReceiver)
		}
		receivers[i] = Receiver{Point: point, Normal: normal.Normalize()}
	}

	return NewScene(d.Name, light, receivers), nil
}

// NewDescription serializes an aggregate light. Quads are written untransformed.
func NewDescription(name string, light *lights.MultiQuadLight) *Description {
	desc := &Description{Name: name}
	for i := 0; i < light.NumMaterials(); i++ {
		m := light.Material(i)
		desc.Materials = append(desc.Materials, MaterialDescription{
			Name:     m.Name,
			Emission: array3(m.Emission),
			TwoSided: m.TwoSided,
		})
	}

	geom := light.Geometry()
	for i := 0; i < geom.Len(); i++ {
		q := geom.Quad(i)
		desc.Quads = append(desc.Quads, QuadDescription{
			Base:     array3(q.Base),
			Edge0:    array3(q.Edge0),
			Edge1:    array3(q.Edge1),
			Material: light.Material(q.Material).Name,
		})
	}
	return desc
}
