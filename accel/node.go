package accel

import "github.com/Sansait/Paralight/types"

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
//   - For internal nodes they are both > 0 and point to the L/R child nodes
//   - For leafs the left value is <= 0 and holds the negated index of the
//     first entry in the primitive index list while the right value holds
//     the number of primitives in the leaf.
//
// Each node takes 32 bytes so the node list can be uploaded to a device as-is.
type Node struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *Node) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Get bounding box.
func (n *Node) BBox() [2]types.Vec3 {
	return [2]types.Vec3{n.Min, n.Max}
}

// Set left and right child node indices.
func (n *Node) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Set primitive index and count.
func (n *Node) SetPrimitives(firstPrimIndex, count uint32) {
	n.LData = -int32(firstPrimIndex)
	n.RData = int32(count)
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LData <= 0
}

// Get the left and right child indices of an internal node.
func (n *Node) Children() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Get the first primitive index and primitive count of a leaf node.
func (n *Node) Primitives() (first, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Returns true if the node box fully contains box.
func (n *Node) Contains(box [2]types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if box[0][axis] < n.Min[axis] || box[1][axis] > n.Max[axis] {
			return false
		}
	}
	return true
}
