package main

import (
	"fmt"
	"os"

	"github.com/Sansait/Paralight/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "paralight"
	app.Usage = "progressive ray tracing of triangle scenes on the cpu or an opencl device"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level (debug, info, notice, warning or error)",
			EnvVar: "PARALIGHT_LOG_LEVEL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile builtin scenes into the binary compressed format",
			Description: `
Build a BVH tree for each scene to optimize ray intersection tests and
package it together with the scene triangles.

The compiled scene data is written to a zip archive which can be supplied
as an argument to the render commands.`,
			ArgsUsage: "scene1 scene2 ...",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:   "out-dir, o",
					Value:  ".",
					Usage:  "output directory for compiled scenes",
					EnvVar: "PARALIGHT_OUT_DIR",
				},
			}, cmd.BuildFlags...),
			Action: cmd.CompileScene,
		},
		{
			Name:      "scene-info",
			Usage:     "print compiled scene information",
			ArgsUsage: "scene.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:      "bvh-stats",
			Usage:     "compare the bvh trees built by each split strategy",
			ArgsUsage: "scene",
			Flags:     cmd.BuildFlags,
			Action:    cmd.ShowBvhStats,
		},
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a single frame with the requested number of samples per pixel.`,
					ArgsUsage:   "scene",
					Flags: append([]cli.Flag{
						cli.StringFlag{
							Name:   "out, o",
							Value:  "frame.png",
							Usage:  "image filename for the rendered frame",
							EnvVar: "PARALIGHT_OUT",
						},
					}, cmd.RenderFlags...),
					Action: cmd.RenderFrame,
				},
				{
					Name:  "interactive",
					Usage: "render interactive view of the scene",
					Description: `
Open a window with a progressively refined view of the scene.

Controls:
  arrows, page up/down   move camera (hold shift to move faster)
  mouse drag             rotate camera
  1 / 2                  switch to the cpu / opencl backend
  0                      cycle debug views (shaded, normals, bvh heatmap)
  a                      toggle ambient occlusion
  r                      reset camera
  p                      save screenshot
  tab                    toggle stats overlay
  esc                    exit`,
					ArgsUsage: "scene",
					Flags: append([]cli.Flag{
						cli.IntFlag{
							Name:   "dump-after",
							Usage:  "save a screenshot once this many samples per pixel are accumulated",
							EnvVar: "PARALIGHT_DUMP_AFTER",
						},
						cli.StringFlag{
							Name:   "screenshot-dir",
							Value:  ".",
							Usage:  "directory for saved screenshots",
							EnvVar: "PARALIGHT_SCREENSHOT_DIR",
						},
					}, cmd.RenderFlags...),
					Action: cmd.RenderInteractive,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
