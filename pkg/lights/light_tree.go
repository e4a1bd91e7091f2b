package lights

import (
	"sort"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// lightTreeNode is the shared topology of the selection trees.
// Every leaf holds exactly one quad; internal nodes have two children.
type lightTreeNode struct {
	Bounds core.AABB
	Left   int // -1 for leaves
	Right  int
	Parent int // -1 for the root
	Quad   int // -1 for internal nodes
}

func (n *lightTreeNode) isLeaf() bool {
	return n.Quad >= 0
}

// lightTreeItem is the input of the topology build
type lightTreeItem struct {
	quad   int
	bounds core.AABB
	center core.Vec3
}

// buildLightTree builds a binary tree over items with median splits along the
// longest axis of the centroid bounds. It returns the flattened nodes (root at
// index 0) and the leaf node of every quad.
func buildLightTree(items []lightTreeItem, quadCount int) ([]lightTreeNode, []int) {
	leafOf := make([]int, quadCount)
	for i := range leafOf {
		leafOf[i] = -1
	}
	if len(items) == 0 {
		return nil, leafOf
	}

	nodes := make([]lightTreeNode, 0, 2*len(items)-1)
	var build func(items []lightTreeItem, parent int) int
	build = func(items []lightTreeItem, parent int) int {
		index := len(nodes)
		nodes = append(nodes, lightTreeNode{Left: -1, Right: -1, Parent: parent, Quad: -1})

		if len(items) == 1 {
			nodes[index].Bounds = items[0].bounds
			nodes[index].Quad = items[0].quad
			leafOf[items[0].quad] = index
			return index
		}

		centroidBounds := core.EmptyAABB()
		for _, item := range items {
			centroidBounds = centroidBounds.UnionPoint(item.center)
		}
		axis := centroidBounds.LongestAxis()
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].center.Axis(axis) < items[j].center.Axis(axis)
		})

		mid := len(items) / 2
		left := build(items[:mid], index)
		right := build(items[mid:], index)

		nodes[index].Left = left
		nodes[index].Right = right
		nodes[index].Bounds = nodes[left].Bounds.Union(nodes[right].Bounds)
		return index
	}
	build(items, -1)

	return nodes, leafOf
}

// lightTreeDepth returns the maximum leaf depth of the tree
func lightTreeDepth(nodes []lightTreeNode) int {
	maxDepth := 0
	for i := range nodes {
		if !nodes[i].isLeaf() {
			continue
		}
		depth := 0
		for n := i; nodes[n].Parent >= 0; n = nodes[n].Parent {
			depth++
		}
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth
}
