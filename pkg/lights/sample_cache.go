package lights

import (
	"github.com/df07/go-multiquad-light/pkg/core"
)

// sampleCache is the scratch state of one render thread. It memoises the
// selection weights computed for the last query point so that sampling and
// pdf evaluation at the same point share one tree traversal.
type sampleCache struct {
	lastQuery core.Vec3
	valid     bool

	// Node weights are valid when their stamp equals generation
	generation uint32
	stamps     []uint32
	weights    []float64

	// Quads whose leaf bounds contain the query point
	insideIDs     []int
	insideWeights []float64
	insideTotal   float64

	outsideWeight float64

	hits, misses uint64
}

func newSampleCache(nodeCount int) *sampleCache {
	return &sampleCache{
		stamps:  make([]uint32, nodeCount),
		weights: make([]float64, nodeCount),
	}
}

// matches reports whether the cached weights were computed for p
func (c *sampleCache) matches(p core.Vec3) bool {
	return c.valid && c.lastQuery == p
}

// begin invalidates every memoised weight and resets the inside set for p
func (c *sampleCache) begin(p core.Vec3) {
	c.generation++
	if c.generation == 0 {
		// Stamps from the previous wrap could alias the new generation
		for i := range c.stamps {
			c.stamps[i] = 0
		}
		c.generation = 1
	}

	c.lastQuery = p
	c.valid = true
	c.insideIDs = c.insideIDs[:0]
	c.insideWeights = c.insideWeights[:0]
	c.insideTotal = 0
	c.outsideWeight = 0
}

// weight returns the memoised weight of node n and whether it is current
func (c *sampleCache) weight(n int) (float64, bool) {
	if c.stamps[n] != c.generation {
		return 0, false
	}
	return c.weights[n], true
}

func (c *sampleCache) setWeight(n int, w float64) {
	c.stamps[n] = c.generation
	c.weights[n] = w
}

func (c *sampleCache) addInside(quad int, w float64) {
	c.insideIDs = append(c.insideIDs, quad)
	c.insideWeights = append(c.insideWeights, w)
	c.insideTotal += w
}

// insideWeight returns the weight of quad in the inside set
func (c *sampleCache) insideWeight(quad int) (float64, bool) {
	for i, id := range c.insideIDs {
		if id == quad {
			return c.insideWeights[i], true
		}
	}
	return 0, false
}

func (c *sampleCache) totalWeight() float64 {
	return c.insideTotal + c.outsideWeight
}
