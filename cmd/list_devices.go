package cmd

import (
	"bytes"
	"fmt"

	"github.com/Sansait/Paralight/tracer/opencl"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available opencl devices.
func ListDevices(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	devices, err := opencl.ListDevices()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Platform", "Device", "Type", "Speed"})
	for _, dev := range devices {
		table.Append([]string{dev.Platform, dev.Name, dev.Type, fmt.Sprintf("%d", dev.Speed)})
	}
	table.Render()

	logger.Noticef("available opencl devices:\n%s", buf.String())
	return nil
}
