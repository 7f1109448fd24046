package renderer

import (
	"sync"

	"github.com/Sansait/Paralight/tracer"
)

// Render options. Options is a comparable value; any difference between
// the options used by two consecutive frames resets accumulation.
type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Film resolution as a fraction of the frame dims. Values <= 0 are
	// treated as 1.
	RenderScale float32

	// The backend used for rendering passes.
	Backend tracer.Kind

	// Debug views and ambient occlusion.
	Flags tracer.Flag

	// Max distance for ambient occlusion rays.
	AORadius float32

	// Stop accumulating after this many samples. 0 means no limit.
	SamplesPerPixel uint32

	// Exposure for tonemapping.
	Exposure float32
}

// Get the film (accumulation buffer) dimensions after applying the render scale.
func (o Options) FilmSize() (uint32, uint32) {
	scale := o.RenderScale
	if scale <= 0 {
		scale = 1
	}
	w := uint32(float32(o.FrameW) * scale)
	h := uint32(float32(o.FrameH) * scale)
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return w, h
}

// Settings holds the current render options. It is safe to mutate the
// settings from an input handler while frames are being rendered; the
// renderer reads them once per frame.
type Settings struct {
	mu   sync.Mutex
	opts Options
}

// Create settings with the given initial options.
func NewSettings(opts Options) *Settings {
	return &Settings{opts: opts}
}

// Get a copy of the current options.
func (s *Settings) Get() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Apply fn to the current options.
func (s *Settings) Update(fn func(*Options)) {
	s.mu.Lock()
	fn(&s.opts)
	s.mu.Unlock()
}

// Toggle a pass flag.
func (s *Settings) ToggleFlag(flag tracer.Flag) {
	s.Update(func(o *Options) {
		o.Flags ^= flag
	})
}

// Step through the debug views: shaded, normals, heatmap.
func (s *Settings) CycleDebugView() {
	s.Update(func(o *Options) {
		switch {
		case o.Flags&tracer.DebugNormals != 0:
			o.Flags = o.Flags&^tracer.DebugNormals | tracer.DebugHeatmap
		case o.Flags&tracer.DebugHeatmap != 0:
			o.Flags &^= tracer.DebugHeatmap
		default:
			o.Flags |= tracer.DebugNormals
		}
	})
}
