package cmd

import (
	"bytes"
	"fmt"

	"github.com/Sansait/Paralight/accel"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Build the acceleration structure of a scene with each split strategy and
// compare the resulting trees.
func ShowBvhStats(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := buildOptions(ctx)
	if err != nil {
		return err
	}

	ls, err := sceneArg(ctx)
	if err != nil {
		return err
	}
	snap := ls.state.Snapshot()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Strategy", "Nodes", "Leaves", "Max depth", "Leaf size (min/avg/max)", "Build time"})
	for _, strategy := range []accel.SplitStrategy{accel.SurfaceAreaHeuristic, accel.MedianSplit} {
		opts.Strategy = strategy
		structure, err := accel.Build(snap.Triangles, opts)
		if err != nil {
			return err
		}

		stats := structure.Stats()
		table.Append([]string{
			stats.Strategy.String(),
			fmt.Sprintf("%d", stats.Nodes),
			fmt.Sprintf("%d", stats.Leaves),
			fmt.Sprintf("%d", stats.MaxDepth),
			fmt.Sprintf("%d / %.2f / %d", stats.MinLeafSize, stats.AvgLeafSize, stats.MaxLeafSize),
			stats.BuildTime.String(),
		})
	}
	table.Render()

	logger.Noticef("bvh statistics for %s\n%s", snap, buf.String())
	return nil
}
