package accel

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Sansait/Paralight/scene"
)

// Structure is a bounding volume hierarchy over the triangles of a
// TriangleSet. Nodes are stored in a flat list with the root at index 0;
// leafs reference triangles through a separate primitive index list so the
// triangle data itself is never copied or reordered.
//
// A Structure is immutable after construction. The only mutable state are the
// per-frame diagnostic counters which are updated atomically and may be read
// and reset while no traversal is in flight.
type Structure struct {
	triangles   *scene.TriangleSet
	nodes       []Node
	primIndices []uint32
	stats       TreeStats

	nodesVisited   atomic.Uint64
	degenerateRays atomic.Uint64
}

// Statistics about the tree layout.
type TreeStats struct {
	Strategy    SplitStrategy
	Triangles   int
	Nodes       int
	Leaves      int
	MaxDepth    int
	MinLeafSize int
	MaxLeafSize int
	AvgLeafSize float32
	BuildTime   time.Duration
}

// The per-frame traversal counters.
type Counters struct {
	NodesVisited   uint64
	TriangleTests  uint64
	DegenerateRays uint64
}

func newStructure(ts *scene.TriangleSet, nodes []Node, primIndices []uint32, strategy SplitStrategy, buildTime time.Duration) *Structure {
	s := &Structure{
		triangles:   ts,
		nodes:       nodes,
		primIndices: primIndices,
	}
	s.stats = s.collectStats()
	s.stats.Strategy = strategy
	s.stats.BuildTime = buildTime
	return s
}

// Create a structure from a previously built node and primitive index list.
// The supplied lists are validated against ts: all child and primitive
// indices must be in range, every node must be reachable exactly once and
// every triangle must be referenced by exactly one leaf. strategy records
// how the lists were originally built.
func Restore(ts *scene.TriangleSet, nodes []Node, primIndices []uint32, strategy SplitStrategy) (*Structure, error) {
	if ts.Len() == 0 {
		if len(nodes) != 0 || len(primIndices) != 0 {
			return nil, fmt.Errorf("%w: tree references %d primitives of an empty triangle set", ErrCorruptTree, len(primIndices))
		}
		return newStructure(ts, nil, nil, strategy, 0), ErrEmptyGeometry
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: empty node list", ErrCorruptTree)
	}
	if len(primIndices) != ts.Len() {
		return nil, fmt.Errorf("%w: expected %d primitive indices; got %d", ErrCorruptTree, ts.Len(), len(primIndices))
	}

	visited := make([]bool, len(nodes))
	referenced := make([]bool, ts.Len())
	stack := []uint32{0}
	for len(stack) > 0 {
		nodeIndex := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[nodeIndex] {
			return nil, fmt.Errorf("%w: node %d is reachable through more than one path", ErrCorruptTree, nodeIndex)
		}
		visited[nodeIndex] = true

		node := &nodes[nodeIndex]
		if !node.IsLeaf() {
			left, right := node.Children()
			for _, child := range [2]uint32{left, right} {
				if child <= nodeIndex || int(child) >= len(nodes) {
					return nil, fmt.Errorf("%w: node %d has invalid child index %d", ErrCorruptTree, nodeIndex, child)
				}
				stack = append(stack, child)
			}
			continue
		}

		first, count := node.Primitives()
		if node.RData < 0 || int(first)+int(count) > len(primIndices) {
			return nil, fmt.Errorf("%w: leaf %d references primitive range [%d, %d)", ErrCorruptTree, nodeIndex, first, int(first)+int(node.RData))
		}
		for _, primIndex := range primIndices[first : first+count] {
			if int(primIndex) >= ts.Len() {
				return nil, fmt.Errorf("%w: leaf %d references unknown triangle %d", ErrCorruptTree, nodeIndex, primIndex)
			}
			if referenced[primIndex] {
				return nil, fmt.Errorf("%w: triangle %d is referenced by more than one leaf", ErrCorruptTree, primIndex)
			}
			referenced[primIndex] = true
		}
	}

	for index, seen := range referenced {
		if !seen {
			return nil, fmt.Errorf("%w: triangle %d is not referenced by any leaf", ErrCorruptTree, index)
		}
	}

	return newStructure(ts, nodes, primIndices, strategy, 0), nil
}

// Get the triangle set that this structure indexes.
func (s *Structure) Triangles() *scene.TriangleSet {
	return s.triangles
}

// Get the flat node list. The returned slice must not be modified.
func (s *Structure) Nodes() []Node {
	return s.nodes
}

// Get the leaf primitive index list. The returned slice must not be modified.
func (s *Structure) PrimIndices() []uint32 {
	return s.primIndices
}

// Get the tree statistics.
func (s *Structure) Stats() TreeStats {
	return s.stats
}

// Returns true if the structure contains no nodes.
func (s *Structure) Empty() bool {
	return len(s.nodes) == 0
}

// Zero the node visit, triangle test and degenerate ray counters.
func (s *Structure) ResetCounters() {
	s.nodesVisited.Store(0)
	s.degenerateRays.Store(0)
	if s.triangles != nil {
		s.triangles.ResetCounters()
	}
}

// Get the counter values accumulated since the last reset.
func (s *Structure) Counters() Counters {
	c := Counters{
		NodesVisited:   s.nodesVisited.Load(),
		DegenerateRays: s.degenerateRays.Load(),
	}
	if s.triangles != nil {
		c.TriangleTests = s.triangles.Tests()
	}
	return c
}

// Add counters that were collected outside this process' traversal code (for
// example by a device kernel).
func (s *Structure) AddCounters(c Counters) {
	if c.NodesVisited != 0 {
		s.nodesVisited.Add(c.NodesVisited)
	}
	if c.DegenerateRays != 0 {
		s.degenerateRays.Add(c.DegenerateRays)
	}
	if s.triangles != nil {
		s.triangles.AddTests(c.TriangleTests)
	}
}

// Add the counters accumulated in rs to the global counters and zero rs.
func (s *Structure) Flush(rs *RayStats) {
	s.AddCounters(Counters(*rs))
	*rs = RayStats{}
}

func (s *Structure) collectStats() TreeStats {
	stats := TreeStats{
		Triangles: s.triangles.Len(),
		Nodes:     len(s.nodes),
	}
	if len(s.nodes) == 0 {
		return stats
	}

	type entry struct {
		node  uint32
		depth int
	}
	stats.MinLeafSize = len(s.primIndices)
	totalLeafItems := 0
	stack := []entry{{0, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.depth > stats.MaxDepth {
			stats.MaxDepth = e.depth
		}

		node := &s.nodes[e.node]
		if !node.IsLeaf() {
			left, right := node.Children()
			stack = append(stack, entry{left, e.depth + 1}, entry{right, e.depth + 1})
			continue
		}

		_, count := node.Primitives()
		stats.Leaves++
		totalLeafItems += int(count)
		if int(count) < stats.MinLeafSize {
			stats.MinLeafSize = int(count)
		}
		if int(count) > stats.MaxLeafSize {
			stats.MaxLeafSize = int(count)
		}
	}
	stats.AvgLeafSize = float32(totalLeafItems) / float32(stats.Leaves)
	return stats
}
