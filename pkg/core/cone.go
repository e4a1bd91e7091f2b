package core

import "math"

// DirectionCone bounds a set of directions by a central axis and the cosine
// of its half-angle. An empty cone has CosTheta = +Inf.
type DirectionCone struct {
	W        Vec3
	CosTheta float64
}

// NewDirectionCone creates a cone around w (normalized) with the given half-angle cosine
func NewDirectionCone(w Vec3, cosTheta float64) DirectionCone {
	return DirectionCone{W: w.Normalize(), CosTheta: cosTheta}
}

// EmptyDirectionCone returns a cone containing no directions
func EmptyDirectionCone() DirectionCone {
	return DirectionCone{CosTheta: math.Inf(1)}
}

// EntireSphereCone returns a cone containing every direction
func EntireSphereCone() DirectionCone {
	return DirectionCone{W: NewVec3(0, 0, 1), CosTheta: -1}
}

// IsEmpty reports whether the cone contains no directions
func (c DirectionCone) IsEmpty() bool {
	return math.IsInf(c.CosTheta, 1)
}

// Contains reports whether the unit direction w lies inside the cone
func (c DirectionCone) Contains(w Vec3) bool {
	return !c.IsEmpty() && c.W.Dot(w) >= c.CosTheta
}

// UnionCone returns a cone bounding the directions of both a and b
func UnionCone(a, b DirectionCone) DirectionCone {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}

	thetaA := SafeAcos(a.CosTheta)
	thetaB := SafeAcos(b.CosTheta)
	thetaD := AngleBetween(a.W, b.W)

	// One cone already contains the other
	if math.Min(thetaD+thetaB, math.Pi) <= thetaA {
		return a
	}
	if math.Min(thetaD+thetaA, math.Pi) <= thetaB {
		return b
	}

	thetaO := (thetaA + thetaD + thetaB) / 2
	if thetaO >= math.Pi {
		return EntireSphereCone()
	}

	// Rotate a's axis towards b's by the extra spread
	thetaR := thetaO - thetaA
	wr := a.W.Cross(b.W)
	if wr.LengthSquared() == 0 {
		return EntireSphereCone()
	}
	w := a.W.RotateAround(wr.Normalize(), thetaR)
	return DirectionCone{W: w, CosTheta: math.Cos(thetaO)}
}

// BoundSubtendedDirections returns a cone from p containing the whole box.
// If p lies inside the box's bounding sphere every direction is possible.
func BoundSubtendedDirections(bounds AABB, p Vec3) DirectionCone {
	center, radius := bounds.BoundingSphere()
	toCenter := center.Subtract(p)
	distSq := toCenter.LengthSquared()
	if distSq < radius*radius {
		return EntireSphereCone()
	}

	sin2ThetaMax := radius * radius / distSq
	cosThetaMax := SafeSqrt(1 - sin2ThetaMax)
	return DirectionCone{W: toCenter.Normalize(), CosTheta: cosThetaMax}
}

// SphericalTriangleArea returns the solid angle of the triangle spanned by
// three unit directions (Van Oosterom and Strackee)
func SphericalTriangleArea(a, b, c Vec3) float64 {
	numerator := math.Abs(a.Dot(b.Cross(c)))
	denominator := 1 + a.Dot(b) + b.Dot(c) + c.Dot(a)
	return math.Abs(2 * math.Atan2(numerator, denominator))
}

// ParallelogramSolidAngle returns the solid angle subtended at p by the
// parallelogram base + s*edge0 + t*edge1, s,t in [0,1]
func ParallelogramSolidAngle(p, base, edge0, edge1 Vec3) float64 {
	v0 := base.Subtract(p).Normalize()
	v1 := base.Add(edge0).Subtract(p).Normalize()
	v2 := base.Add(edge0).Add(edge1).Subtract(p).Normalize()
	v3 := base.Add(edge1).Subtract(p).Normalize()
	if v0.IsZero() || v1.IsZero() || v2.IsZero() || v3.IsZero() {
		return 0
	}
	return SphericalTriangleArea(v0, v1, v2) + SphericalTriangleArea(v0, v2, v3)
}
