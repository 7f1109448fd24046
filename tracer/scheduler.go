package tracer

import (
	"fmt"
	"math"
)

// BlockRenderer is implemented by anything that renders a contiguous block
// of frame rows and reports how long that took.
type BlockRenderer interface {
	// Get a speed estimate compared to a baseline (single cpu core) renderer.
	Speed() uint32

	// Retrieve last block statistics.
	Stats() *Stats
}

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign them to the
	// pool of renderers.
	//
	// This function returns the block height assignment for each renderer
	// in the input list. The assigned heights always add up to frameH.
	Schedule(renderers []BlockRenderer, frameH uint32) []uint32
}

// Get a block scheduler by name.
func SchedulerByName(name string) (BlockScheduler, error) {
	switch name {
	case "naive", "":
		return NaiveScheduler(), nil
	case "perfect":
		return PerfectScheduler(), nil
	}
	return nil, fmt.Errorf("tracer: unknown block scheduler %q", name)
}

// The naive scheduler splits the frame according to each renderer's speed estimate.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

func (sch *naiveScheduler) Schedule(renderers []BlockRenderer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(renderers) {
		sch.blockAssignment = make([]uint32, len(renderers))
	}
	return assignBySpeed(renderers, frameH, sch.blockAssignment)
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of renderers using feedback collected from previous frames.
//
// This function returns the block height assignment for each renderer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for renderer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(renderers []BlockRenderer, frameH uint32) []uint32 {
	// If this is the first time we try to schedule or the number of renderers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(renderers) {
		sch.blockAssignment = make([]uint32, len(renderers))
		return assignBySpeed(renderers, frameH, sch.blockAssignment)
	}

	// Use last frame statistics
	var total float64
	rates := make([]float64, len(renderers))
	for idx, r := range renderers {
		rates[idx] = blockRate(r.Stats())
		total += rates[idx]
	}

	if total == 0 {
		return assignBySpeed(renderers, frameH, sch.blockAssignment)
	}

	scaler := float64(frameH) / total
	for idx := range renderers {
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(rates[idx]*scaler)))
	}

	balanceRows(sch.blockAssignment, frameH)
	return sch.blockAssignment
}

// Rows rendered per nanosecond for the last block.
func blockRate(stats *Stats) float64 {
	renderTime := stats.RenderTime.Nanoseconds()
	if renderTime <= 0 {
		renderTime = 1
	}
	return float64(stats.BlockH) / float64(renderTime)
}

// Distribute rows proportionally to the speed estimate of each renderer.
func assignBySpeed(renderers []BlockRenderer, frameH uint32, blockAssignment []uint32) []uint32 {
	var total float64
	for _, r := range renderers {
		total += float64(r.Speed())
	}
	if total == 0 {
		total = 1
	}

	scaler := float64(frameH) / total
	for idx, r := range renderers {
		blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(r.Speed())*scaler)))
	}

	balanceRows(blockAssignment, frameH)
	return blockAssignment
}

// Adjust the assignment so that the rows add up to frameH. Missing rows are
// appended to the first renderer; extra rows are removed from the largest
// blocks.
func balanceRows(blockAssignment []uint32, frameH uint32) {
	var scheduledRows uint32
	for _, rows := range blockAssignment {
		scheduledRows += rows
	}

	if scheduledRows <= frameH {
		blockAssignment[0] += frameH - scheduledRows
		return
	}

	for ; scheduledRows > frameH; scheduledRows-- {
		largest := len(blockAssignment) - 1
		for idx := largest - 1; idx >= 0; idx-- {
			if blockAssignment[idx] > blockAssignment[largest] {
				largest = idx
			}
		}
		if blockAssignment[largest] == 0 {
			return
		}
		blockAssignment[largest]--
	}
}
