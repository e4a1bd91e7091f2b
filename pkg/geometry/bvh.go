package geometry

import (
	"sort"

	"github.com/df07/go-multiquad-light/pkg/core"
)

const (
	// Ranges with this many or fewer quads always become leaves
	maxLeafQuads = 4

	// Ranges up to this size may stay leaves when no split beats the leaf cost
	maxSAHLeafQuads = 16

	// Number of centroid buckets evaluated per axis
	sahBins = 12

	// Relative cost of visiting an internal node versus testing one quad
	traversalCost = 0.125

	boundsPadding = 1e-9
)

// QuadHit is the per-hit data returned by the intersection tree
type QuadHit struct {
	Quad     int     // Index of the hit quad
	T        float64 // Ray parameter of the hit
	U, V     float64 // Parametric coordinates on the quad
	Backside bool    // Whether the ray arrived from behind the quad normal
}

// QuadBVHNode is a node of the flattened intersection tree.
// Leaves have Count > 0 and reference indices[Start:Start+Count].
type QuadBVHNode struct {
	Bounds      core.AABB
	Left, Right int
	Start       int
	Count       int
}

// IsLeaf reports whether the node stores quads directly
func (n *QuadBVHNode) IsLeaf() bool {
	return n.Count > 0
}

// QuadBVH is a binary bounding volume hierarchy over the quads of a QuadGeometry
type QuadBVH struct {
	geometry *QuadGeometry
	nodes    []QuadBVHNode
	indices  []int
	bounds   []core.AABB // per-quad bounds used during the build
	centers  []core.Vec3 // per-quad centroids used during the build
}

// NewQuadBVH builds the intersection tree with a binned surface area heuristic
func NewQuadBVH(geometry *QuadGeometry) *QuadBVH {
	n := geometry.Len()
	bvh := &QuadBVH{
		geometry: geometry,
		nodes:    make([]QuadBVHNode, 0, 2*n),
		indices:  make([]int, n),
		bounds:   make([]core.AABB, n),
		centers:  make([]core.Vec3, n),
	}
	if n == 0 {
		return bvh
	}

	for i := 0; i < n; i++ {
		bvh.indices[i] = i
		// Flat boxes are padded so slab tests do not drop hits on quad edges
		bvh.bounds[i] = geometry.Quad(i).BoundingBox().Expand(boundsPadding)
		bvh.centers[i] = bvh.bounds[i].Center()
	}

	bvh.build(0, n)

	// Build scratch is not needed for traversal
	bvh.bounds = nil
	bvh.centers = nil
	return bvh
}

// build partitions indices[start:end] and returns the index of the created node
func (bvh *QuadBVH) build(start, end int) int {
	bounds := core.EmptyAABB()
	centroidBounds := core.EmptyAABB()
	for _, idx := range bvh.indices[start:end] {
		bounds = bounds.Union(bvh.bounds[idx])
		centroidBounds = centroidBounds.UnionPoint(bvh.centers[idx])
	}

	nodeIndex := len(bvh.nodes)
	bvh.nodes = append(bvh.nodes, QuadBVHNode{Bounds: bounds})

	count := end - start
	if count <= maxLeafQuads {
		return bvh.makeLeaf(nodeIndex, start, count)
	}

	mid, ok := bvh.partitionSAH(start, end, bounds, centroidBounds)
	if !ok {
		if count <= maxSAHLeafQuads {
			return bvh.makeLeaf(nodeIndex, start, count)
		}
		mid = bvh.partitionMedian(start, end, centroidBounds)
	}

	left := bvh.build(start, mid)
	right := bvh.build(mid, end)
	bvh.nodes[nodeIndex].Left = left
	bvh.nodes[nodeIndex].Right = right
	return nodeIndex
}

func (bvh *QuadBVH) makeLeaf(nodeIndex, start, count int) int {
	bvh.nodes[nodeIndex].Start = start
	bvh.nodes[nodeIndex].Count = count
	return nodeIndex
}

type sahBin struct {
	count  int
	bounds core.AABB
}

// partitionSAH scores bucketed splits along every axis (cost = traversal +
// (countL*areaL + countR*areaR) / area) and partitions at the cheapest one.
// It reports false if no split beats turning the range into a leaf.
func (bvh *QuadBVH) partitionSAH(start, end int, bounds, centroidBounds core.AABB) (int, bool) {
	count := end - start
	parentArea := bounds.SurfaceArea()
	if parentArea <= 0 {
		parentArea = 1
	}

	bestCost := float64(count)
	bestAxis, bestSplit := -1, 0
	extent := centroidBounds.Diagonal()

	for axis := 0; axis < 3; axis++ {
		if extent.Axis(axis) <= 0 {
			continue
		}

		var bins [sahBins]sahBin
		for i := range bins {
			bins[i].bounds = core.EmptyAABB()
		}
		for _, idx := range bvh.indices[start:end] {
			b := bvh.binIndex(bvh.centers[idx], centroidBounds, axis)
			bins[b].count++
			bins[b].bounds = bins[b].bounds.Union(bvh.bounds[idx])
		}

		// Sweep from the right to get suffix areas, then from the left
		var rightArea [sahBins]float64
		var rightCount [sahBins]int
		acc := core.EmptyAABB()
		accCount := 0
		for i := sahBins - 1; i > 0; i-- {
			acc = acc.Union(bins[i].bounds)
			accCount += bins[i].count
			rightArea[i] = acc.SurfaceArea()
			rightCount[i] = accCount
		}

		acc = core.EmptyAABB()
		accCount = 0
		for split := 1; split < sahBins; split++ {
			acc = acc.Union(bins[split-1].bounds)
			accCount += bins[split-1].count
			if accCount == 0 || rightCount[split] == 0 {
				continue
			}
			cost := traversalCost +
				(float64(accCount)*acc.SurfaceArea()+float64(rightCount[split])*rightArea[split])/parentArea
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = split
			}
		}
	}

	if bestAxis < 0 {
		return 0, false
	}

	// In-place partition: quads whose bin is below the split go left
	i, j := start, end-1
	for i <= j {
		if bvh.binIndex(bvh.centers[bvh.indices[i]], centroidBounds, bestAxis) < bestSplit {
			i++
		} else {
			bvh.indices[i], bvh.indices[j] = bvh.indices[j], bvh.indices[i]
			j--
		}
	}
	if i == start || i == end {
		return 0, false
	}
	return i, true
}

func (bvh *QuadBVH) binIndex(center core.Vec3, centroidBounds core.AABB, axis int) int {
	lo := centroidBounds.Min.Axis(axis)
	hi := centroidBounds.Max.Axis(axis)
	b := int(float64(sahBins) * (center.Axis(axis) - lo) / (hi - lo))
	if b >= sahBins {
		b = sahBins - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

// partitionMedian sorts the range by centroid along the longest centroid axis
// and splits it in the middle
func (bvh *QuadBVH) partitionMedian(start, end int, centroidBounds core.AABB) int {
	axis := centroidBounds.LongestAxis()
	sub := bvh.indices[start:end]
	sort.Slice(sub, func(i, j int) bool {
		return bvh.centers[sub[i]].Axis(axis) < bvh.centers[sub[j]].Axis(axis)
	})
	return start + (end-start)/2
}

// Intersect returns the closest quad hit with t in [tMin, tMax]
func (bvh *QuadBVH) Intersect(ray core.Ray, tMin, tMax float64) (QuadHit, bool) {
	hit := QuadHit{Quad: -1}
	if len(bvh.nodes) == 0 {
		return hit, false
	}

	closest := tMax
	stack := make([]int, 1, 64)
	stack[0] = 0
	for len(stack) > 0 {
		node := &bvh.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if !node.Bounds.Hit(ray, tMin, closest) {
			continue
		}

		if node.IsLeaf() {
			for _, idx := range bvh.indices[node.Start : node.Start+node.Count] {
				if t, u, v, ok := bvh.geometry.Quad(idx).Intersect(ray, tMin, closest); ok {
					closest = t
					hit = QuadHit{Quad: idx, T: t, U: u, V: v}
				}
			}
			continue
		}

		stack = append(stack, node.Right, node.Left)
	}

	if hit.Quad < 0 {
		return hit, false
	}
	hit.Backside = ray.Direction.Dot(bvh.geometry.Quad(hit.Quad).Normal) > 0
	return hit, true
}

// Occluded reports whether any quad is hit with t in [tMin, tMax]
func (bvh *QuadBVH) Occluded(ray core.Ray, tMin, tMax float64) bool {
	if len(bvh.nodes) == 0 {
		return false
	}

	stack := make([]int, 1, 64)
	stack[0] = 0
	for len(stack) > 0 {
		node := &bvh.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if !node.Bounds.Hit(ray, tMin, tMax) {
			continue
		}

		if node.IsLeaf() {
			for _, idx := range bvh.indices[node.Start : node.Start+node.Count] {
				if _, _, _, ok := bvh.geometry.Quad(idx).Intersect(ray, tMin, tMax); ok {
					return true
				}
			}
			continue
		}

		stack = append(stack, node.Right, node.Left)
	}
	return false
}

// BoundingBox returns the bounds of the root node
func (bvh *QuadBVH) BoundingBox() core.AABB {
	if len(bvh.nodes) == 0 {
		return core.EmptyAABB()
	}
	return bvh.nodes[0].Bounds
}

// BVHStats contains statistics about the tree structure
type BVHStats struct {
	TotalNodes int
	LeafNodes  int
	MaxDepth   int
	AvgDepth   float64
	TotalQuads int
}

// Stats walks the tree and returns its structure statistics
func (bvh *QuadBVH) Stats() BVHStats {
	stats := BVHStats{}
	if len(bvh.nodes) == 0 {
		return stats
	}
	bvh.collectStats(0, 0, &stats)

	// Calculate average depth after collecting all data
	if stats.LeafNodes > 0 {
		stats.AvgDepth = stats.AvgDepth / float64(stats.LeafNodes)
	}
	return stats
}

func (bvh *QuadBVH) collectStats(nodeIndex, depth int, stats *BVHStats) {
	node := &bvh.nodes[nodeIndex]
	stats.TotalNodes++
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	if node.IsLeaf() {
		stats.LeafNodes++
		stats.TotalQuads += node.Count
		stats.AvgDepth += float64(depth)
		return
	}
	bvh.collectStats(node.Left, depth+1, stats)
	bvh.collectStats(node.Right, depth+1, stats)
}
