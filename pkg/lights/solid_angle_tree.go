package lights

import (
	"math"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// precomputedQuad holds the per-quad values needed by the leaf weights
type precomputedQuad struct {
	Center   core.Vec3
	Ngu      core.Vec3 // Edge0 × Edge1: the normal scaled by the area
	Area     float64
	Radiance float64
	TwoSided bool
}

func precomputeQuads(geom *geometry.QuadGeometry, materials []*material.QuadMaterial) []precomputedQuad {
	quads := make([]precomputedQuad, geom.Len())
	for i := range quads {
		q := geom.Quad(i)
		mat := materials[q.Material]
		quads[i] = precomputedQuad{
			Center:   q.Centroid(),
			Ngu:      q.Edge0.Cross(q.Edge1),
			Area:     q.Area,
			Radiance: mat.Radiance(),
			TwoSided: mat.IsTwoSided(),
		}
	}
	return quads
}

// SolidAngleTree selects quads proportionally to an estimate of their
// contribution at a shading point. Weights live in a per-thread sampleCache;
// the tree itself is read-only after construction.
type SolidAngleTree struct {
	geometry *geometry.QuadGeometry
	quads    []precomputedQuad

	nodes    []lightTreeNode
	cones    []core.DirectionCone
	twoSided []bool
	power    []float64 // radiance × area of the emitters below each node
	leafOf   []int
}

// NewSolidAngleTree builds the tree over every quad of geom
func NewSolidAngleTree(geom *geometry.QuadGeometry, quads []precomputedQuad) *SolidAngleTree {
	items := make([]lightTreeItem, geom.Len())
	for i := range items {
		q := geom.Quad(i)
		items[i] = lightTreeItem{quad: i, bounds: q.BoundingBox(), center: quads[i].Center}
	}

	nodes, leafOf := buildLightTree(items, geom.Len())
	tree := &SolidAngleTree{
		geometry: geom,
		quads:    quads,
		nodes:    nodes,
		cones:    make([]core.DirectionCone, len(nodes)),
		twoSided: make([]bool, len(nodes)),
		power:    make([]float64, len(nodes)),
		leafOf:   leafOf,
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		node := &nodes[i]
		if node.isLeaf() {
			pq := &quads[node.Quad]
			tree.power[i] = pq.Radiance * pq.Area
			if tree.power[i] > 0 {
				tree.cones[i] = core.NewDirectionCone(geom.Quad(node.Quad).Normal, 1)
				tree.twoSided[i] = pq.TwoSided
			} else {
				tree.cones[i] = core.EmptyDirectionCone()
			}
			continue
		}
		tree.power[i] = tree.power[node.Left] + tree.power[node.Right]
		tree.cones[i] = core.UnionCone(tree.cones[node.Left], tree.cones[node.Right])
		tree.twoSided[i] = tree.twoSided[node.Left] || tree.twoSided[node.Right]
	}

	return tree
}

// NodeCount returns the number of tree nodes
func (t *SolidAngleTree) NodeCount() int {
	return len(t.nodes)
}

// Depth returns the maximum leaf depth
func (t *SolidAngleTree) Depth() int {
	return lightTreeDepth(t.nodes)
}

// buildSampleWeights fills c with the weights for query point p
func (t *SolidAngleTree) buildSampleWeights(c *sampleCache, p core.Vec3) {
	c.begin(p)
	if len(t.nodes) == 0 {
		return
	}
	t.collectInside(c, 0, p)
	c.outsideWeight = t.nodeWeight(c, 0)
}

// collectInside adds every quad whose leaf bounds contain p to the inside set
func (t *SolidAngleTree) collectInside(c *sampleCache, n int, p core.Vec3) {
	node := &t.nodes[n]
	if !node.Bounds.Contains(p) {
		return
	}
	if node.isLeaf() {
		c.addInside(node.Quad, t.insideWeight(node.Quad, p))
		return
	}
	t.collectInside(c, node.Left, p)
	t.collectInside(c, node.Right, p)
}

// nodeWeight returns the memoised outside weight of node n
func (t *SolidAngleTree) nodeWeight(c *sampleCache, n int) float64 {
	if w, ok := c.weight(n); ok {
		return w
	}

	p := c.lastQuery
	node := &t.nodes[n]
	var w float64
	switch {
	case node.isLeaf():
		if !node.Bounds.Contains(p) {
			w = t.leafWeight(node.Quad, p)
		}
	case node.Bounds.Contains(p):
		// The estimate is meaningless from inside the bounds, so expand
		w = t.nodeWeight(c, node.Left) + t.nodeWeight(c, node.Right)
	default:
		w = t.clusterWeight(n, p)
	}

	if math.IsNaN(w) || w < 0 {
		w = 0
	}
	c.setWeight(n, w)
	return w
}

// insideWeight is the exact radiance-weighted solid angle of a nearby quad
func (t *SolidAngleTree) insideWeight(quad int, p core.Vec3) float64 {
	pq := &t.quads[quad]
	if pq.Radiance <= 0 {
		return 0
	}
	q := t.geometry.Quad(quad)
	side := pq.Ngu.Dot(p.Subtract(q.Base))
	if side == 0 || (side < 0 && !pq.TwoSided) {
		return 0
	}
	return pq.Radiance * core.ParallelogramSolidAngle(p, q.Base, q.Edge0, q.Edge1)
}

// leafWeight estimates the contribution of a distant quad from its centroid
func (t *SolidAngleTree) leafWeight(quad int, p core.Vec3) float64 {
	pq := &t.quads[quad]
	if pq.Radiance <= 0 {
		return 0
	}
	d := p.Subtract(pq.Center)
	distanceSquared := d.LengthSquared()
	if distanceSquared == 0 {
		return 0
	}

	// A cos θ towards p
	projectedArea := pq.Ngu.Dot(d) / math.Sqrt(distanceSquared)
	if pq.TwoSided {
		projectedArea = math.Abs(projectedArea)
	}
	if projectedArea <= 0 {
		return 0
	}
	return pq.Radiance * projectedArea / math.Max(distanceSquared, pq.Area)
}

// clusterWeight bounds the contribution of all emitters below node n.
// It is zero only when no emitter in the node can face p.
func (t *SolidAngleTree) clusterWeight(n int, p core.Vec3) float64 {
	phi := t.power[n]
	if phi <= 0 {
		return 0
	}
	cone := t.cones[n]
	bounds := t.nodes[n].Bounds

	center := bounds.Center()
	toPoint := p.Subtract(center)
	distanceSquared := math.Max(toPoint.LengthSquared(), bounds.Diagonal().Length()/2)
	if distanceSquared == 0 {
		return phi
	}
	wi := toPoint.Normalize()

	// Angle between the cone axis and the direction towards p
	cosThetaW := cone.W.Dot(wi)
	if t.twoSided[n] {
		cosThetaW = math.Abs(cosThetaW)
	}
	sinThetaW := core.SafeSqrt(1 - cosThetaW*cosThetaW)

	// Angle subtended by the bounds as seen from p
	cosThetaB := core.BoundSubtendedDirections(bounds, p).CosTheta
	sinThetaB := core.SafeSqrt(1 - cosThetaB*cosThetaB)

	cosThetaO := math.Min(cone.CosTheta, 1)
	sinThetaO := core.SafeSqrt(1 - cosThetaO*cosThetaO)

	// θ' = max(0, θw - θo - θb)
	cosThetaX := cosSubClamped(sinThetaW, cosThetaW, sinThetaO, cosThetaO)
	sinThetaX := sinSubClamped(sinThetaW, cosThetaW, sinThetaO, cosThetaO)
	cosThetaP := cosSubClamped(sinThetaX, cosThetaX, sinThetaB, cosThetaB)
	if cosThetaP <= 0 {
		return 0
	}

	return phi * cosThetaP / distanceSquared
}

// cosSubClamped returns cos(max(0, a-b)) from the sines and cosines of a and b
func cosSubClamped(sinA, cosA, sinB, cosB float64) float64 {
	if cosA > cosB {
		return 1
	}
	return cosA*cosB + sinA*sinB
}

// sinSubClamped returns sin(max(0, a-b)) from the sines and cosines of a and b
func sinSubClamped(sinA, cosA, sinB, cosB float64) float64 {
	if cosA > cosB {
		return 0
	}
	return sinA*cosB - cosA*sinB
}

// leftProbability is the probability of descending into the left child of n
func (t *SolidAngleTree) leftProbability(c *sampleCache, n int) float64 {
	left, right := t.nodes[n].Left, t.nodes[n].Right
	wl := t.nodeWeight(c, left)
	wr := t.nodeWeight(c, right)
	if sum := wl + wr; sum > 0 && !math.IsInf(sum, 0) {
		return wl / sum
	}

	// No usable estimate below this node: fall back to power
	if sum := t.power[left] + t.power[right]; sum > 0 {
		return t.power[left] / sum
	}
	return 0.5
}

// sample selects a quad for the point the cache was built for.
// The returned probability equals probability(c, quad).
func (t *SolidAngleTree) sample(c *sampleCache, u float64) (int, float64, bool) {
	total := c.totalWeight()
	if !(total > 0) || math.IsInf(total, 0) {
		return -1, 0, false
	}

	insideFraction := c.insideTotal / total
	if u < insideFraction {
		target := u * total
		last := -1
		for i, w := range c.insideWeights {
			if w <= 0 {
				continue
			}
			if target < w {
				return c.insideIDs[i], w / total, true
			}
			target -= w
			last = i
		}
		if last >= 0 {
			return c.insideIDs[last], c.insideWeights[last] / total, true
		}
	}

	if !(c.outsideWeight > 0) {
		return -1, 0, false
	}
	u = math.Min((u-insideFraction)/(1-insideFraction), oneMinusEpsilon)
	u = math.Max(u, 0)

	node := 0
	probability := c.outsideWeight / total
	for !t.nodes[node].isLeaf() {
		pLeft := t.leftProbability(c, node)
		if u < pLeft {
			u /= pLeft
			probability *= pLeft
			node = t.nodes[node].Left
		} else {
			u = (u - pLeft) / (1 - pLeft)
			probability *= 1 - pLeft
			node = t.nodes[node].Right
		}
		u = math.Min(u, oneMinusEpsilon)
	}

	if !(probability > 0) {
		return -1, 0, false
	}
	return t.nodes[node].Quad, probability, true
}

// probability returns the chance of sample selecting quad for the cached point
func (t *SolidAngleTree) probability(c *sampleCache, quad int) float64 {
	total := c.totalWeight()
	if !(total > 0) || math.IsInf(total, 0) || quad < 0 || quad >= len(t.leafOf) {
		return 0
	}

	leaf := t.leafOf[quad]
	if t.nodes[leaf].Bounds.Contains(c.lastQuery) {
		w, _ := c.insideWeight(quad)
		return w / total
	}

	probability := c.outsideWeight / total
	for n := leaf; t.nodes[n].Parent >= 0 && probability > 0; n = t.nodes[n].Parent {
		parent := t.nodes[n].Parent
		pLeft := t.leftProbability(c, parent)
		if t.nodes[parent].Left == n {
			probability *= pLeft
		} else {
			probability *= 1 - pLeft
		}
	}
	return probability
}
