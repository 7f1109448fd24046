package tracer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/scene"
)

// The kind of render backend.
type Kind uint8

const (
	CPU Kind = iota
	OpenCL
)

func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case OpenCL:
		return "opencl"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Parse a backend kind name.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "cpu":
		return CPU, nil
	case "opencl", "cl", "gpu":
		return OpenCL, nil
	}
	return CPU, fmt.Errorf("tracer: unknown backend kind %q", name)
}

type Flag uint32

// Pass flags.
const (
	// Visualize shading normals instead of shaded radiance.
	DebugNormals Flag = 1 << iota

	// Visualize the number of BVH nodes visited per primary ray.
	DebugHeatmap

	// Cast one ambient occlusion ray per pixel and attenuate the ambient term.
	AmbientOcclusion
)

// A request to render a single sample per pixel and merge it into the
// accumulation buffer.
type PassRequest struct {
	Snapshot scene.Snapshot
	Camera   scene.CameraState
	Accel    *accel.Structure

	// The buffer to merge the pass into. The buffer is only modified if
	// the pass completes successfully.
	Accum *AccumBuffer

	// The 1-based index of the sample being rendered. It seeds the pixel jitter.
	FrameNumber uint32

	Flags Flag

	// Max distance for ambient occlusion rays.
	AORadius float32
}

// Validate the request against the tracer frame dimensions.
func (req *PassRequest) Validate(frameW, frameH uint32) error {
	if req.Accel == nil || req.Snapshot.Triangles == nil {
		return ErrNoSceneData
	}
	if req.Accum == nil {
		return fmt.Errorf("%w: missing accumulation buffer", ErrInvalidPass)
	}
	if req.Accum.Width != frameW || req.Accum.Height != frameH {
		return fmt.Errorf(
			"%w: accumulation buffer is %dx%d; tracer frame is %dx%d",
			ErrInvalidPass, req.Accum.Width, req.Accum.Height, frameW, frameH,
		)
	}
	if req.FrameNumber == 0 {
		return fmt.Errorf("%w: frame numbers start at 1", ErrInvalidPass)
	}
	return nil
}

// Get shading parameters for this request.
func (req *PassRequest) ShadeParams() ShadeParams {
	return ShadeParams{
		Flags:       req.Flags,
		AORadius:    req.AORadius,
		FrameNumber: req.FrameNumber,
	}
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering the last block or pass.
	RenderTime time.Duration

	// Row assignment of the last pass when the tracer splits the frame
	// into blocks.
	BlockRows []uint32
}

// Tracer is implemented by all render backends.
type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the backend kind.
	Kind() Kind

	// Setup the tracer for rendering frames with the given dimensions.
	Init(frameW, frameH uint32) error

	// Render one sample per pixel and merge it into the request's
	// accumulation buffer. If an error is returned the buffer is untouched.
	RenderPass(req *PassRequest) error

	// Retrieve last pass statistics.
	Stats() *Stats

	// Shutdown and cleanup tracer.
	Close()
}
