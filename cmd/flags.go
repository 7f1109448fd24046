package cmd

import (
	"fmt"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/renderer"
	"github.com/Sansait/Paralight/tracer"
	"github.com/Sansait/Paralight/tracer/cpu"
	"github.com/Sansait/Paralight/tracer/opencl"
	"github.com/urfave/cli"
)

// Flags that control how the acceleration structure is built.
var BuildFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "bvh-strategy",
		Value:  "sah",
		Usage:  "bvh split strategy (sah or median)",
		EnvVar: "PARALIGHT_BVH_STRATEGY",
	},
	cli.IntFlag{
		Name:   "max-leaf",
		Value:  accel.DefaultMaxLeafItems,
		Usage:  "max number of triangles in a bvh leaf",
		EnvVar: "PARALIGHT_MAX_LEAF",
	},
}

// Flags shared by the render commands.
var RenderFlags = append([]cli.Flag{
	cli.IntFlag{
		Name:   "width",
		Value:  512,
		Usage:  "frame width",
		EnvVar: "PARALIGHT_WIDTH",
	},
	cli.IntFlag{
		Name:   "height",
		Value:  512,
		Usage:  "frame height",
		EnvVar: "PARALIGHT_HEIGHT",
	},
	cli.Float64Flag{
		Name:   "scale",
		Value:  1.0,
		Usage:  "render scale; the film is rendered at scale * frame size",
		EnvVar: "PARALIGHT_SCALE",
	},
	cli.StringFlag{
		Name:   "backend",
		Value:  "cpu",
		Usage:  "initial render backend (cpu or opencl)",
		EnvVar: "PARALIGHT_BACKEND",
	},
	cli.StringFlag{
		Name:   "scheduler",
		Value:  "naive",
		Usage:  "cpu block scheduler (naive or perfect)",
		EnvVar: "PARALIGHT_SCHEDULER",
	},
	cli.IntFlag{
		Name:   "workers",
		Usage:  "number of cpu workers (defaults to the number of cpus)",
		EnvVar: "PARALIGHT_WORKERS",
	},
	cli.IntFlag{
		Name:   "spp",
		Usage:  "stop accumulating after this many samples per pixel (0 = unlimited)",
		EnvVar: "PARALIGHT_SPP",
	},
	cli.Float64Flag{
		Name:   "exposure",
		Value:  1.0,
		Usage:  "camera exposure for tone-mapping",
		EnvVar: "PARALIGHT_EXPOSURE",
	},
	cli.BoolFlag{
		Name:   "ao",
		Usage:  "enable ambient occlusion",
		EnvVar: "PARALIGHT_AO",
	},
	cli.Float64Flag{
		Name:   "ao-radius",
		Value:  float64(tracer.DefaultAORadius),
		Usage:  "ambient occlusion ray length",
		EnvVar: "PARALIGHT_AO_RADIUS",
	},
	cli.StringFlag{
		Name:   "debug",
		Usage:  "debug view (normals or heatmap)",
		EnvVar: "PARALIGHT_DEBUG",
	},
	cli.StringSliceFlag{
		Name:   "blacklist, b",
		Value:  &cli.StringSlice{},
		Usage:  "blacklist opencl devices whose names contain this value",
		EnvVar: "PARALIGHT_BLACKLIST",
	},
	cli.StringFlag{
		Name:   "device-type",
		Usage:  "opencl device type (gpu, cpu or all)",
		EnvVar: "PARALIGHT_DEVICE_TYPE",
	},
	cli.StringFlag{
		Name:   "device-name",
		Usage:  "only use opencl devices whose name contains this value",
		EnvVar: "PARALIGHT_DEVICE_NAME",
	},
}, BuildFlags...)

func buildOptions(ctx *cli.Context) (accel.BuildOptions, error) {
	strategy, err := accel.ParseSplitStrategy(ctx.String("bvh-strategy"))
	if err != nil {
		return accel.BuildOptions{}, err
	}
	return accel.BuildOptions{
		Strategy:     strategy,
		MaxLeafItems: ctx.Int("max-leaf"),
	}, nil
}

func renderOptions(ctx *cli.Context) (renderer.Options, error) {
	kind, err := tracer.ParseKind(ctx.String("backend"))
	if err != nil {
		return renderer.Options{}, err
	}

	opts := renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		RenderScale:     float32(ctx.Float64("scale")),
		Backend:         kind,
		AORadius:        float32(ctx.Float64("ao-radius")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Exposure:        float32(ctx.Float64("exposure")),
	}
	if ctx.Bool("ao") {
		opts.Flags |= tracer.AmbientOcclusion
	}

	switch ctx.String("debug") {
	case "":
	case "normals":
		opts.Flags |= tracer.DebugNormals
	case "heatmap":
		opts.Flags |= tracer.DebugHeatmap
	default:
		return opts, fmt.Errorf("unknown debug view %q", ctx.String("debug"))
	}

	return opts, nil
}

// Create the render backends. The opencl backend is optional unless it is
// the selected one.
func createBackends(ctx *cli.Context, selected tracer.Kind) ([]tracer.Tracer, error) {
	var backends []tracer.Tracer

	cpuTracer, err := cpu.NewTracer("cpu", cpu.Config{
		NumWorkers: ctx.Int("workers"),
		Scheduler:  ctx.String("scheduler"),
	})
	if err != nil {
		return nil, err
	}
	backends = append(backends, cpuTracer)

	clTracer, err := opencl.NewTracer("opencl", opencl.Config{
		DeviceType: ctx.String("device-type"),
		DeviceName: ctx.String("device-name"),
		Blacklist:  ctx.StringSlice("blacklist"),
	})
	switch {
	case err == nil:
		backends = append(backends, clTracer)
	case selected == tracer.OpenCL:
		cpuTracer.Close()
		return nil, err
	default:
		logger.Infof("opencl backend disabled: %v", err)
	}

	return backends, nil
}
