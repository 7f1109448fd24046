package tracer

import (
	"fmt"

	"github.com/Sansait/Paralight/types"
)

// AccumBuffer stores RGBA float32 values per pixel in row-major order.
type AccumBuffer struct {
	Width  uint32
	Height uint32
	Pixels []float32
}

// Allocate a zeroed buffer for a frame of the given dimensions.
func NewAccumBuffer(width, height uint32) *AccumBuffer {
	return &AccumBuffer{
		Width:  width,
		Height: height,
		Pixels: make([]float32, 4*int(width)*int(height)),
	}
}

// Zero all pixels.
func (ab *AccumBuffer) Clear() {
	for i := range ab.Pixels {
		ab.Pixels[i] = 0
	}
}

// Resize the buffer. The buffer is reallocated (and thus zeroed) only if the
// dimensions change. Returns true if the buffer was reallocated.
func (ab *AccumBuffer) Resize(width, height uint32) bool {
	if ab.Width == width && ab.Height == height && len(ab.Pixels) == 4*int(width)*int(height) {
		return false
	}
	ab.Width = width
	ab.Height = height
	ab.Pixels = make([]float32, 4*int(width)*int(height))
	return true
}

// Get the pixel at (x, y).
func (ab *AccumBuffer) At(x, y uint32) types.Vec4 {
	offset := 4 * (int(y)*int(ab.Width) + int(x))
	return types.Vec4{ab.Pixels[offset], ab.Pixels[offset+1], ab.Pixels[offset+2], ab.Pixels[offset+3]}
}

// Set the pixel at (x, y).
func (ab *AccumBuffer) Set(x, y uint32, v types.Vec4) {
	offset := 4 * (int(y)*int(ab.Width) + int(x))
	copy(ab.Pixels[offset:offset+4], v[:])
}

// Add the contents of pass to this buffer.
func (ab *AccumBuffer) Merge(pass *AccumBuffer) error {
	if pass.Width != ab.Width || pass.Height != ab.Height {
		return fmt.Errorf("%w: cannot merge %dx%d pass into %dx%d buffer", ErrInvalidPass, pass.Width, pass.Height, ab.Width, ab.Height)
	}
	dst := ab.Pixels
	for i, v := range pass.Pixels[:len(dst)] {
		dst[i] += v
	}
	return nil
}
