package renderer

// Renderer produces frames on demand. Progressive is the only implementation.
type Renderer interface {
	// Prepare and render the next frame.
	Frame() error

	// Shutdown renderer and any attached backend.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

var _ Renderer = (*Progressive)(nil)
