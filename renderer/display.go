package renderer

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/Sansait/Paralight/tracer"
	"github.com/chewxy/math32"
)

const gamma float32 = 1.0 / 2.2

// Display presents resolved frames.
type Display interface {
	Present(img *image.RGBA, stats FrameStats) error
	Close()
}

// An interactive display owns the input loop of the render session.
type InteractiveDisplay interface {
	Display

	// Process pending input events.
	PollEvents()

	// Report whether the user asked to end the session.
	ShouldClose() bool
}

// Divide the accumulated samples by the sample count, apply exposure, a
// Reinhard tonemap and gamma correction. A buffer without samples resolves
// to a black image.
func Resolve(ab *tracer.AccumBuffer, frameNumber uint32, exposure float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(ab.Width), int(ab.Height)))
	if exposure <= 0 {
		exposure = 1
	}

	var scale float32
	if frameNumber > 0 {
		scale = exposure / float32(frameNumber)
	}

	pix := img.Pix
	for i := 0; i < len(ab.Pixels); i += 4 {
		pix[i] = toneMap(ab.Pixels[i] * scale)
		pix[i+1] = toneMap(ab.Pixels[i+1] * scale)
		pix[i+2] = toneMap(ab.Pixels[i+2] * scale)
		pix[i+3] = 255
	}
	return img
}

func toneMap(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	v = math32.Pow(v/(1+v), gamma)
	return uint8(math32.Min(v*255+0.5, 255))
}

// PNGDisplay writes presented frames to a png file, optionally with the
// stats overlay drawn on top.
type PNGDisplay struct {
	Path    string
	Overlay bool
}

// Write the frame to the display path.
func (d *PNGDisplay) Present(img *image.RGBA, stats FrameStats) error {
	if d.Overlay {
		DrawOverlay(img, stats.Lines(), color.RGBA{255, 255, 255, 255})
	}

	f, err := os.Create(d.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

func (d *PNGDisplay) Close() {}

// Options for the interactive render loop.
type RunOptions struct {
	// Save a screenshot once this many samples are accumulated. 0 disables.
	DumpAfter uint32

	// Directory for screenshots.
	ScreenshotDir string
}

// Render and present frames until the display asks to close. Frames are
// only rendered until the sample limit is reached; input keeps being
// processed so that a change restarts accumulation.
func (p *Progressive) Run(d InteractiveDisplay, opts RunOptions) error {
	var lastErr error
	dumped := false

	for !d.ShouldClose() {
		d.PollEvents()

		spp := p.settings.Get().SamplesPerPixel
		before := p.FrameNumber()
		if err := p.Frame(); err != nil {
			if errors.Is(err, ErrNoUsableBackend) {
				return err
			}
			if lastErr == nil || err.Error() != lastErr.Error() {
				p.logger.Errorf("frame failed: %v", err)
			}
			lastErr = err
			time.Sleep(10 * time.Millisecond)
			continue
		}
		lastErr = nil

		frameNumber := p.FrameNumber()
		if spp != 0 && frameNumber == before && frameNumber >= spp {
			// Converged; avoid spinning while waiting for input
			time.Sleep(5 * time.Millisecond)
		}

		if frameNumber < opts.DumpAfter {
			dumped = false
		} else if opts.DumpAfter != 0 && !dumped {
			if _, err := p.Screenshot(opts.ScreenshotDir); err != nil {
				p.logger.Errorf("could not save screenshot: %v", err)
			}
			dumped = true
		}

		if err := d.Present(p.Image(), p.Stats()); err != nil {
			return err
		}
	}
	return nil
}
