package lights

import (
	"math"

	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// Largest float64 below one, used to keep rescaled random numbers in [0, 1)
const oneMinusEpsilon = 0x1.fffffffffffffp-1

// EmissiveTree selects quads proportionally to their emitted power,
// independently of any shading point. Used for outbound (light tracing) samples.
type EmissiveTree struct {
	nodes     []lightTreeNode
	power     []float64 // per node
	quadPower []float64 // per quad
	total     float64
}

// QuadPower returns the flux emitted by a quad with the given material
func QuadPower(q *geometry.Quad, mat *material.QuadMaterial) float64 {
	power := mat.Radiance() * q.Area * math.Pi
	if mat.IsTwoSided() {
		power *= 2
	}
	return power
}

// NewEmissiveTree builds the power-weighted selection tree over all quads
func NewEmissiveTree(geom *geometry.QuadGeometry, materials []*material.QuadMaterial) *EmissiveTree {
	n := geom.Len()
	items := make([]lightTreeItem, n)
	quadPower := make([]float64, n)
	for i := 0; i < n; i++ {
		q := geom.Quad(i)
		items[i] = lightTreeItem{quad: i, bounds: q.BoundingBox(), center: q.Centroid()}
		quadPower[i] = QuadPower(q, materials[q.Material])
	}

	nodes, _ := buildLightTree(items, n)
	tree := &EmissiveTree{
		nodes:     nodes,
		power:     make([]float64, len(nodes)),
		quadPower: quadPower,
	}

	// Children always follow their parent, so a reverse sweep sums bottom-up
	for i := len(nodes) - 1; i >= 0; i-- {
		node := &nodes[i]
		if node.isLeaf() {
			tree.power[i] = quadPower[node.Quad]
		} else {
			tree.power[i] = tree.power[node.Left] + tree.power[node.Right]
		}
	}
	if len(nodes) > 0 {
		tree.total = tree.power[0]
	}
	return tree
}

// Pick selects a quad with a single random number u in [0, 1).
// The returned probability is the product of the branch probabilities taken.
func (t *EmissiveTree) Pick(u float64) (int, float64, bool) {
	if !(t.total > 0) || math.IsInf(t.total, 0) {
		return -1, 0, false
	}

	node := 0
	probability := 1.0
	for !t.nodes[node].isLeaf() {
		left, right := t.nodes[node].Left, t.nodes[node].Right
		pLeft := t.power[left] / (t.power[left] + t.power[right])

		if u < pLeft {
			u /= pLeft
			probability *= pLeft
			node = left
		} else {
			u = (u - pLeft) / (1 - pLeft)
			probability *= 1 - pLeft
			node = right
		}
		u = math.Min(u, oneMinusEpsilon)
	}

	return t.nodes[node].Quad, probability, true
}

// Probability returns the probability of Pick selecting quad
func (t *EmissiveTree) Probability(quad int) float64 {
	if !(t.total > 0) || quad < 0 || quad >= len(t.quadPower) {
		return 0
	}
	return t.quadPower[quad] / t.total
}

// TotalPower returns the summed flux of all quads
func (t *EmissiveTree) TotalPower() float64 {
	return t.total
}

// NodeCount returns the number of tree nodes
func (t *EmissiveTree) NodeCount() int {
	return len(t.nodes)
}
