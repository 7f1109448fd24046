package cmd

import (
	"time"

	"github.com/Sansait/Paralight/renderer"
	"github.com/Sansait/Paralight/scene"
	"github.com/urfave/cli"
)

// Load the scene and create a progressive renderer with all available backends.
func setupRenderer(ctx *cli.Context) (*renderer.Progressive, *scene.CameraControls, *renderer.Settings, error) {
	opts, err := renderOptions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	buildOpts, err := buildOptions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	ls, err := sceneArg(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Noticef("loaded %s", ls.state.Snapshot())

	backends, err := createBackends(ctx, opts.Backend)
	if err != nil {
		return nil, nil, nil, err
	}

	camera := scene.NewCameraControls(ls.state.Snapshot().DefaultCamera)
	settings := renderer.NewSettings(opts)
	r, err := renderer.NewProgressive(ls.state, camera, settings, buildOpts, backends...)
	if err != nil {
		for _, tr := range backends {
			tr.Close()
		}
		return nil, nil, nil, err
	}

	if ls.structure != nil {
		if err = r.UseStructure(ls.structure); err != nil {
			r.Close()
			return nil, nil, nil, err
		}
	}

	return r, camera, settings, nil
}

// Run spp frames through r, stopping at the first error.
func renderFrames(r renderer.Renderer, spp uint32) error {
	logger.Noticef("rendering frame (%d spp)", spp)
	start := time.Now()
	for i := uint32(0); i < spp; i++ {
		if err := r.Frame(); err != nil {
			return err
		}
	}
	logger.Noticef("rendered frame in %s", time.Since(start))
	return nil
}

// Render a still frame and write it to a png file.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	r, _, settings, err := setupRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	spp := settings.Get().SamplesPerPixel
	if spp == 0 {
		spp = 1
		settings.Update(func(o *renderer.Options) { o.SamplesPerPixel = spp })
	}

	if err = renderFrames(r, spp); err != nil {
		return err
	}

	out := &renderer.PNGDisplay{Path: ctx.String("out")}
	defer out.Close()
	if err = out.Present(r.Image(), r.Stats()); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", out.Path)

	// Display stats
	logger.Noticef("frame statistics\n%s", r.Stats().Table())
	return nil
}

// Open a window with a continuously refined view of the scene. Keyboard and
// mouse input moves the camera and changes the render settings.
func RenderInteractive(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	r, camera, settings, err := setupRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := settings.Get()
	screenshotDir := ctx.String("screenshot-dir")
	display, err := renderer.NewGLDisplay(r, camera, settings, opts.FrameW, opts.FrameH, screenshotDir)
	if err != nil {
		return err
	}
	defer display.Close()

	return r.Run(display, renderer.RunOptions{
		DumpAfter:     uint32(ctx.Int("dump-after")),
		ScreenshotDir: screenshotDir,
	})
}
