package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Per-frame statistics. Counters only reflect the work of the last frame.
type FrameStats struct {
	// Number of samples accumulated so far.
	FrameNumber uint32

	// The id of the backend that rendered the frame.
	Backend string

	TriangleTests  uint64
	NodesVisited   uint64
	DegenerateRays uint64

	// Time spent in the backend for this frame.
	PassTime time.Duration

	// Time since accumulation was last reset and the resulting convergence rate.
	SinceReset    time.Duration
	SamplesPerSec float32

	// Row block assignment when the backend splits the frame.
	BlockRows []uint32
}

// Render the stats as a table.
func (fs FrameStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Stat", "Value"})
	table.Append([]string{"Backend", fs.Backend})
	table.Append([]string{"Samples", fmt.Sprintf("%d", fs.FrameNumber)})
	table.Append([]string{"Pass time", fs.PassTime.String()})
	table.Append([]string{"Since reset", fs.SinceReset.String()})
	table.Append([]string{"Samples/sec", fmt.Sprintf("%.2f", fs.SamplesPerSec)})
	table.Append([]string{"Nodes visited", fmt.Sprintf("%d", fs.NodesVisited)})
	table.Append([]string{"Triangle tests", fmt.Sprintf("%d", fs.TriangleTests)})
	table.Append([]string{"Degenerate rays", fmt.Sprintf("%d", fs.DegenerateRays)})
	if len(fs.BlockRows) != 0 {
		table.Append([]string{"Block rows", fmt.Sprintf("%v", fs.BlockRows)})
	}
	table.Render()
	return buf.String()
}

// Short single-line summaries used by the overlay.
func (fs FrameStats) Lines() []string {
	return []string{
		fmt.Sprintf("%s  spp %d  %.1f spp/s", fs.Backend, fs.FrameNumber, fs.SamplesPerSec),
		fmt.Sprintf("pass %s  elapsed %s", fs.PassTime.Round(time.Microsecond), fs.SinceReset.Round(time.Millisecond)),
		fmt.Sprintf("nodes %d  tris %d  degenerate %d", fs.NodesVisited, fs.TriangleTests, fs.DegenerateRays),
	}
}
