package accel

import (
	"math"

	"github.com/Sansait/Paralight/types"
	"github.com/chewxy/math32"
)

// A ray/triangle hit record.
type Hit struct {
	// Distance from the ray origin to the hit point.
	Distance float32

	// Index of the hit triangle in the structure's triangle set.
	Triangle int

	// Barycentric coordinates of the hit point.
	U, V float32
}

// Traversal counters owned by a single caller. Workers accumulate into a
// private RayStats and call Structure.Flush once per block so that the
// shared atomic counters are not contended per ray.
type RayStats struct {
	NodesVisited   uint64
	TriangleTests  uint64
	DegenerateRays uint64
}

type stackEntry struct {
	node  uint32
	entry float32
}

// Find the closest triangle hit along ray.
func (s *Structure) Intersect(ray types.Ray) (Hit, bool) {
	var rs RayStats
	hit, found := s.IntersectCounted(ray, &rs)
	s.Flush(&rs)
	return hit, found
}

// Returns true if any triangle is hit along ray at a distance in [RayEpsilon, maxDist).
func (s *Structure) Occluded(ray types.Ray, maxDist float32) bool {
	var rs RayStats
	occluded := s.OccludedCounted(ray, maxDist, &rs)
	s.Flush(&rs)
	return occluded
}

// Find the closest triangle hit along ray accumulating traversal counters into rs.
//
// Every node whose box gets tested counts as one visit. The root box is
// tested on entry; the boxes of both children of an internal node are tested
// when the node is expanded and the hit children are pushed far-first so the
// near child is processed first. Entries whose box distance exceeds the
// nearest hit found so far (plus TieEpsilon) are discarded when popped.
//
// The hit is the lowest indexed triangle among the hits within TieEpsilon
// of the nearest hit distance. When the first traversal sees two hits that
// close to each other, a second traversal bounded by that window selects
// the winner so that the result does not depend on the visiting order.
func (s *Structure) IntersectCounted(ray types.Ray, rs *RayStats) (Hit, bool) {
	miss := Hit{Distance: math.MaxFloat32, Triangle: -1}
	if ray.IsDegenerate() {
		rs.DegenerateRays++
		return miss, false
	}
	if len(s.nodes) == 0 {
		return miss, false
	}

	invDir := inverse(ray.Dir)

	rs.NodesVisited++
	rootEntry, hitRoot := intersectBox(ray.Origin, invDir, s.nodes[0].Min, s.nodes[0].Max, math.MaxFloat32)
	if !hitRoot {
		return miss, false
	}

	nearest, tied, found := s.nearestHit(&ray, invDir, rootEntry, rs)
	if !found || !tied {
		return nearest, found
	}
	return s.lowestIndexWithin(&ray, invDir, rootEntry, nearest.Distance+TieEpsilon, rs), true
}

// Find the hit with the smallest distance and report whether any other hit
// was found within TieEpsilon of the nearest distance known at the time.
func (s *Structure) nearestHit(ray *types.Ray, invDir types.Vec3, rootEntry float32, rs *RayStats) (best Hit, tied, found bool) {
	best = Hit{Distance: math.MaxFloat32, Triangle: -1}
	triangles := s.triangles.All()

	var stackBuf [64]stackEntry
	stack := append(stackBuf[:0], stackEntry{0, rootEntry})
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if found && e.entry > best.Distance+TieEpsilon {
			continue
		}

		node := &s.nodes[e.node]
		if node.IsLeaf() {
			first, count := node.Primitives()
			for _, primIndex := range s.primIndices[first : first+count] {
				rs.TriangleTests++
				dist, u, v, hit := IntersectTriangle(ray, &triangles[primIndex])
				if !hit {
					continue
				}
				if found && math32.Abs(dist-best.Distance) <= TieEpsilon {
					tied = true
				}
				if !found || dist < best.Distance || (dist == best.Distance && int(primIndex) < best.Triangle) {
					best = Hit{Distance: dist, Triangle: int(primIndex), U: u, V: v}
					found = true
				}
			}
			continue
		}

		limit := float32(math.MaxFloat32)
		if found {
			limit = best.Distance + TieEpsilon
		}
		stack = s.pushChildren(stack, node, ray.Origin, invDir, limit, rs)
	}

	return best, tied, found
}

// Find the lowest indexed triangle hit at a distance of at most window.
func (s *Structure) lowestIndexWithin(ray *types.Ray, invDir types.Vec3, rootEntry, window float32, rs *RayStats) Hit {
	best := Hit{Distance: math.MaxFloat32, Triangle: -1}
	triangles := s.triangles.All()

	var stackBuf [64]stackEntry
	stack := append(stackBuf[:0], stackEntry{0, rootEntry})
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.entry > window {
			continue
		}

		node := &s.nodes[e.node]
		if node.IsLeaf() {
			first, count := node.Primitives()
			for _, primIndex := range s.primIndices[first : first+count] {
				if best.Triangle >= 0 && int(primIndex) > best.Triangle {
					continue
				}
				rs.TriangleTests++
				dist, u, v, hit := IntersectTriangle(ray, &triangles[primIndex])
				if hit && dist <= window {
					best = Hit{Distance: dist, Triangle: int(primIndex), U: u, V: v}
				}
			}
			continue
		}

		stack = s.pushChildren(stack, node, ray.Origin, invDir, window, rs)
	}

	return best
}

// Check whether any triangle is hit along ray at a distance in
// [RayEpsilon, maxDist) accumulating traversal counters into rs.
func (s *Structure) OccludedCounted(ray types.Ray, maxDist float32, rs *RayStats) bool {
	if ray.IsDegenerate() {
		rs.DegenerateRays++
		return false
	}
	if len(s.nodes) == 0 || !(maxDist > RayEpsilon) {
		return false
	}

	invDir := inverse(ray.Dir)
	triangles := s.triangles.All()

	rs.NodesVisited++
	if _, hitRoot := intersectBox(ray.Origin, invDir, s.nodes[0].Min, s.nodes[0].Max, maxDist); !hitRoot {
		return false
	}

	var stackBuf [64]stackEntry
	stack := append(stackBuf[:0], stackEntry{})
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &s.nodes[e.node]
		if node.IsLeaf() {
			first, count := node.Primitives()
			for _, primIndex := range s.primIndices[first : first+count] {
				rs.TriangleTests++
				if dist, _, _, hit := IntersectTriangle(&ray, &triangles[primIndex]); hit && dist < maxDist {
					return true
				}
			}
			continue
		}

		stack = s.pushChildren(stack, node, ray.Origin, invDir, maxDist, rs)
	}

	return false
}

// Test the child boxes of an internal node and push the ones that are hit
// within limit, far child first.
func (s *Structure) pushChildren(stack []stackEntry, node *Node, origin, invDir types.Vec3, limit float32, rs *RayStats) []stackEntry {
	left, right := node.Children()
	rs.NodesVisited += 2
	lEntry, hitLeft := intersectBox(origin, invDir, s.nodes[left].Min, s.nodes[left].Max, limit)
	rEntry, hitRight := intersectBox(origin, invDir, s.nodes[right].Min, s.nodes[right].Max, limit)

	switch {
	case hitLeft && hitRight:
		if lEntry <= rEntry {
			stack = append(stack, stackEntry{right, rEntry}, stackEntry{left, lEntry})
		} else {
			stack = append(stack, stackEntry{left, lEntry}, stackEntry{right, rEntry})
		}
	case hitLeft:
		stack = append(stack, stackEntry{left, lEntry})
	case hitRight:
		stack = append(stack, stackEntry{right, rEntry})
	}
	return stack
}

func inverse(dir types.Vec3) types.Vec3 {
	return types.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]}
}
