package core

import "math"

// Transform is an affine transform applied as scale, then rotation, then translation
type Transform struct {
	Translate Vec3 // World-space offset
	Rotate    Vec3 // Euler angles in degrees, applied X then Y then Z
	Scale     Vec3 // Per-axis scale factors
}

// IdentityTransform returns a transform that leaves points unchanged
func IdentityTransform() Transform {
	return Transform{Scale: NewVec3(1, 1, 1)}
}

// radians returns the rotation converted to radians
func (t Transform) radians() Vec3 {
	return t.Rotate.Multiply(math.Pi / 180)
}

// Vector transforms a direction or edge vector (translation is ignored)
func (t Transform) Vector(v Vec3) Vec3 {
	return v.MultiplyVec(t.Scale).Rotate(t.radians())
}

// Point transforms a position
func (t Transform) Point(p Vec3) Vec3 {
	return t.Vector(p).Add(t.Translate)
}
