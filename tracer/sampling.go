package tracer

import (
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/types"
)

// PixelSampler generates a deterministic sequence of uniform values in
// [0, 1) for a (frame, x, y) triplet. The OpenCL kernel implements the same
// sequence so that both backends sample identical sub-pixel positions.
type PixelSampler struct {
	state uint32
}

// Create a sampler for a pixel of a particular frame.
func NewPixelSampler(frame, x, y uint32) PixelSampler {
	return PixelSampler{state: hash32(x + hash32(y+hash32(frame)))}
}

// Get the next value in the sequence.
func (ps *PixelSampler) Next() float32 {
	ps.state = hash32(ps.state)
	return float32(ps.state>>8) * (1.0 / 16777216.0)
}

// A 32-bit integer hash with good avalanche behavior.
func hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// Generate the primary ray through sub-pixel position (x + jx, y + jy) of
// a frameW x frameH film. Row 0 is the top of the image.
func PrimaryRay(basis *scene.CameraBasis, frameW, frameH, x, y uint32, jx, jy float32) types.Ray {
	aspect := float32(frameW) / float32(frameH)
	sx := ((float32(x)+jx)/float32(frameW))*2 - 1
	sy := 1 - ((float32(y)+jy)/float32(frameH))*2

	dir := basis.Forward.
		Add(basis.Right.Mul(sx * basis.TanHalfFOV * aspect)).
		Add(basis.Up.Mul(sy * basis.TanHalfFOV))

	return types.Ray{Origin: basis.Eye, Dir: dir.Normalize()}
}
