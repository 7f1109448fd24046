package accel

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Sansait/Paralight/log"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// The BVH builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the split step (calculated as side length / (1024 * depth+1))
	// is less than this threshold the BVH builder will not evaluate
	// split candidates.
	minSplitStep float32 = 1e-5

	DefaultMaxLeafItems = 4
	DefaultMaxDepth     = 32
)

// The strategy used for partitioning triangles into child nodes.
type SplitStrategy uint8

const (
	// Evaluate split planes along each axis and pick the one with the
	// best surface area heuristic (SAH) score.
	SurfaceAreaHeuristic SplitStrategy = iota

	// Sort items by their centroid along the longest axis and split
	// the list in the middle.
	MedianSplit
)

func (s SplitStrategy) String() string {
	switch s {
	case SurfaceAreaHeuristic:
		return "SAH"
	case MedianSplit:
		return "median"
	}
	return "unknown"
}

// Parse a split strategy name ("sah" or "median").
func ParseSplitStrategy(name string) (SplitStrategy, error) {
	switch strings.ToLower(name) {
	case "sah", "":
		return SurfaceAreaHeuristic, nil
	case "median":
		return MedianSplit, nil
	}
	return SurfaceAreaHeuristic, fmt.Errorf("accel: unknown split strategy %q", name)
}

// Options for building an acceleration structure. Zero values select the defaults.
type BuildOptions struct {
	Strategy SplitStrategy

	// Nodes with this many items or less become leafs.
	MaxLeafItems int

	// Nodes at this depth become leafs regardless of their item count.
	MaxDepth int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.MaxLeafItems <= 0 {
		o.MaxLeafItems = DefaultMaxLeafItems
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// A triangle reference with a cached bbox and centroid.
type primRef struct {
	index  uint32
	bbox   [2]types.Vec3
	center types.Vec3
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

// Returns true if s should be preferred over other. Equal scores are broken
// by axis and split point so that the resulting tree does not depend on the
// order in which the concurrently computed scores arrive.
func (s *splitScore) betterThan(other *splitScore) bool {
	if s.score != other.score {
		return s.score < other.score
	}
	if s.axis != other.axis {
		return s.axis < other.axis
	}
	return s.splitPoint < other.splitPoint
}

type builder struct {
	logger log.Logger

	opts BuildOptions

	// Bvh nodes stored as a contiguous list
	nodes []Node

	// Triangle indices referenced by leafs
	primIndices []uint32

	// A channel for receiving score results.
	scoreChan chan splitScore
}

// Construct a BVH for the triangles in ts.
//
// If ts is empty, Build returns an empty structure that never reports a hit
// together with ErrEmptyGeometry.
func Build(ts *scene.TriangleSet, opts BuildOptions) (*Structure, error) {
	opts = opts.withDefaults()
	if ts.Len() == 0 {
		return newStructure(ts, nil, nil, opts.Strategy, 0), ErrEmptyGeometry
	}

	b := &builder{
		logger:      log.New("accel"),
		opts:        opts,
		nodes:       make([]Node, 0, 2*ts.Len()/opts.MaxLeafItems+1),
		primIndices: make([]uint32, 0, ts.Len()),
		scoreChan:   make(chan splitScore),
	}

	workList := make([]primRef, ts.Len())
	for index := range ts.All() {
		tri := ts.At(index)
		workList[index] = primRef{
			index:  uint32(index),
			bbox:   tri.BBox(),
			center: tri.Center(),
		}
	}

	start := time.Now()
	b.partition(workList, 0)
	buildTime := time.Since(start)

	s := newStructure(ts, b.nodes, b.primIndices, opts.Strategy, buildTime)
	b.logger.Debugf(
		"BVH tree build time: %d ms, strategy: %s, maxDepth: %d, nodes: %d, leafs: %d",
		buildTime.Nanoseconds()/1e6, opts.Strategy,
		s.stats.MaxDepth, s.stats.Nodes, s.stats.Leaves,
	)
	return s, nil
}

// Partition worklist and return node index.
func (b *builder) partition(workList []primRef, depth int) uint32 {
	node := Node{}
	node.SetBBox(workListBBox(workList))

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.opts.MaxLeafItems || depth >= b.opts.MaxDepth {
		return b.createLeaf(&node, workList)
	}

	var leftWorkList, rightWorkList []primRef
	switch b.opts.Strategy {
	case MedianSplit:
		leftWorkList, rightWorkList = b.splitMedian(workList)
	default:
		leftWorkList, rightWorkList = b.splitSAH(&node, workList, depth)
	}

	// If we can't find a useful split create a leaf
	if len(leftWorkList) == 0 || len(rightWorkList) == 0 {
		return b.createLeaf(&node, workList)
	}

	// Add node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)

	// Partition children and update node indices
	leftNodeIndex := b.partition(leftWorkList, depth+1)
	rightNodeIndex := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].SetChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

// Score candidate split planes concurrently and split the work list using the
// plane with the best SAH score. If no candidate improves the score of the
// unsplit node both returned lists are nil.
func (b *builder) splitSAH(node *Node, workList []primRef, depth int) (left, right []primRef) {
	// Calc current node score
	nodeScore := scorePartition(workList)
	var bestSplit *splitScore

	// Try partioning along each axis and select the split with best score
	pendingScores := 0

	// Run axis split tests in parallel
	side := node.Max.Sub(node.Min)
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if bbox dimension is too small
		if side[axis] < minSideLength {
			continue
		}

		// We want the split steps to become more granular the deeper we go
		splitStep := side[axis] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := node.Min[axis] + splitStep; splitPoint < node.Max[axis]; splitPoint += splitStep {
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := scoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	// Process all scores and pick the best split
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score >= nodeScore {
			continue
		}
		if bestSplit == nil || candidate.betterThan(bestSplit) {
			bestSplit = &candidate
		}
	}

	if bestSplit == nil {
		return nil, nil
	}

	// split work list into two sets
	left = make([]primRef, 0, bestSplit.leftCount)
	right = make([]primRef, 0, bestSplit.rightCount)
	for _, item := range workList {
		if item.center[bestSplit.axis] < bestSplit.splitPoint {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	return left, right
}

// Split the work list in the middle after sorting it by centroid along the
// axis with the largest centroid extent.
func (b *builder) splitMedian(workList []primRef) (left, right []primRef) {
	cmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	cmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, item := range workList {
		cmin = types.MinVec3(cmin, item.center)
		cmax = types.MaxVec3(cmax, item.center)
	}

	side := cmax.Sub(cmin)
	axis := XAxis
	if side[YAxis] > side[axis] {
		axis = YAxis
	}
	if side[ZAxis] > side[axis] {
		axis = ZAxis
	}

	sorted := make([]primRef, len(workList))
	copy(sorted, workList)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].center[axis] != sorted[j].center[axis] {
			return sorted[i].center[axis] < sorted[j].center[axis]
		}
		return sorted[i].index < sorted[j].index
	})

	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// Setup the given node item as a leaf node containing all items in the work list.
// Returns the index to the node in the bvh node array.
func (b *builder) createLeaf(node *Node, workList []primRef) uint32 {
	node.SetPrimitives(uint32(len(b.primIndices)), uint32(len(workList)))
	for _, item := range workList {
		b.primIndices = append(b.primIndices, item.index)
	}

	// append node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)

	return uint32(nodeIndex)
}

func workListBBox(workList []primRef) [2]types.Vec3 {
	bbox := [2]types.Vec3{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for _, item := range workList {
		bbox[0] = types.MinVec3(bbox[0], item.bbox[0])
		bbox[1] = types.MaxVec3(bbox[1], item.bbox[1])
	}
	return bbox
}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it enounters such cases.
func scoreSplit(workList []primRef, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	rmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	lmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	rmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	for _, item := range workList {
		if item.center[axis] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, item.bbox[0])
			lmax = types.MaxVec3(lmax, item.bbox[1])
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, item.bbox[0])
			rmax = types.MaxVec3(rmax, item.bbox[1])
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*halfArea(lmax.Sub(lmin)) + float32(rightCount)*halfArea(rmax.Sub(rmin))
	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func scorePartition(workList []primRef) float32 {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	bbox := workListBBox(workList)
	return float32(len(workList)) * halfArea(bbox[1].Sub(bbox[0]))
}

func halfArea(side types.Vec3) float32 {
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}
