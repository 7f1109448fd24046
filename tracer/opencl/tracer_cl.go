//go:build opencl

package opencl

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/log"
	"github.com/Sansait/Paralight/tracer"
	"github.com/Sansait/Paralight/tracer/opencl/device"
	"github.com/achilleasa/gopencl/v1.2/cl"
)

//go:embed CL/trace.cl
var traceProgram string

const (
	traceKernel = "trace"

	// Width and height of the trace kernel work groups.
	workGroupSize = 8
)

type clTracer struct {
	logger log.Logger

	sync.Mutex

	// The tracer id.
	id string

	// The device associated with this tracer instance.
	device *device.Device
	kernel *device.Kernel

	nodes       *device.Buffer
	primIndices *device.Buffer
	vertices    *device.Buffer
	normals     *device.Buffer
	output      *device.Buffer
	counters    *device.Buffer

	// The structure whose data is currently uploaded.
	uploaded  *accel.Structure
	nodeCount uint32

	frameW uint32
	frameH uint32

	// Host copies of the kernel outputs.
	pass        *tracer.AccumBuffer
	counterData []uint32

	// Statistics for last rendered pass.
	stats *tracer.Stats
}

// Create a new opencl tracer using the best matching device.
func NewTracer(id string, cfg Config) (tracer.Tracer, error) {
	dev, err := selectDevice(cfg)
	if err != nil {
		return nil, err
	}

	tr := &clTracer{
		logger:      log.New(fmt.Sprintf("opencl tracer (%s)", dev.Name)),
		id:          id,
		device:      dev,
		counterData: make([]uint32, numCounters),
		stats:       &tracer.Stats{},
	}

	if err = dev.Init(traceProgram); err != nil {
		return nil, fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	tr.kernel, err = dev.Kernel(traceKernel)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	tr.nodes = dev.Buffer("nodes")
	tr.primIndices = dev.Buffer("primIndices")
	tr.vertices = dev.Buffer("vertices")
	tr.normals = dev.Buffer("normals")
	tr.output = dev.Buffer("output")
	tr.counters = dev.Buffer("counters")

	tr.logger.Noticef("using device %s (%s, ~%d GFlops)", dev.Name, dev.Platform, dev.Speed)
	return tr, nil
}

// Pick a device matching cfg. Without an explicit type, gpu devices are
// preferred over other device types; ties are broken by estimated speed.
func selectDevice(cfg Config) (*device.Device, error) {
	typeMask, err := device.ParseDeviceType(cfg.DeviceType)
	if err != nil {
		return nil, err
	}

	devList, err := device.SelectDevices(typeMask, cfg.DeviceName, cfg.Blacklist...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}
	if len(devList) == 0 {
		return nil, fmt.Errorf("%w: no matching opencl devices", tracer.ErrBackendUnavailable)
	}

	sort.SliceStable(devList, func(i, j int) bool {
		iGpu, jGpu := devList[i].Type == device.GpuDevice, devList[j].Type == device.GpuDevice
		if iGpu != jGpu {
			return iGpu
		}
		return devList[i].Speed > devList[j].Speed
	})
	return devList[0], nil
}

// List the available opencl devices.
func ListDevices() ([]DeviceInfo, error) {
	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	list := make([]DeviceInfo, 0)
	for _, p := range platforms {
		for _, d := range p.Devices {
			list = append(list, DeviceInfo{
				Name:     d.Name,
				Platform: p.Name,
				Type:     d.Type.String(),
				Speed:    d.Speed,
			})
		}
	}
	return list, nil
}

// Get tracer id.
func (tr *clTracer) Id() string {
	return tr.id
}

// Get the backend kind.
func (tr *clTracer) Kind() tracer.Kind {
	return tracer.OpenCL
}

// Allocate the output and counter buffers.
func (tr *clTracer) Init(frameW, frameH uint32) error {
	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("%w: invalid frame dimensions %dx%d", tracer.ErrInvalidPass, frameW, frameH)
	}

	tr.Lock()
	defer tr.Unlock()

	if tr.kernel == nil {
		return tracer.ErrNotInitialized
	}

	pass := tracer.NewAccumBuffer(frameW, frameH)
	if err := tr.output.AllocateToFitData(pass.Pixels, cl.MEM_WRITE_ONLY); err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}
	if err := tr.counters.AllocateToFitData(tr.counterData, cl.MEM_READ_WRITE); err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.pass = pass

	tr.logger.Debugf("allocated output buffer for %dx%d frames", frameW, frameH)
	return nil
}

// Upload the structure data if it differs from the one used by the
// previous pass.
func (tr *clTracer) uploadScene(s *accel.Structure) error {
	if s == tr.uploaded {
		return nil
	}

	start := time.Now()
	sb := packScene(s)
	if err := tr.nodes.AllocateAndWriteData(sb.nodes, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if err := tr.primIndices.AllocateAndWriteData(sb.primIndices, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if err := tr.vertices.AllocateAndWriteData(sb.vertices, cl.MEM_READ_ONLY); err != nil {
		return err
	}
	if err := tr.normals.AllocateAndWriteData(sb.normals, cl.MEM_READ_ONLY); err != nil {
		return err
	}

	tr.uploaded = s
	tr.nodeCount = sb.nodeCount
	tr.logger.Debugf(
		"uploaded %d nodes and %d triangles in %d ms",
		sb.nodeCount,
		len(sb.vertices)/3,
		time.Since(start).Nanoseconds()/1e6,
	)
	return nil
}

// Render one sample per pixel on the device, read back the output and the
// traversal counters and merge the pass into the request's accumulation buffer.
func (tr *clTracer) RenderPass(req *tracer.PassRequest) error {
	tr.Lock()
	defer tr.Unlock()

	if tr.pass == nil {
		return tracer.ErrNotInitialized
	}
	if err := req.Validate(tr.frameW, tr.frameH); err != nil {
		return err
	}

	start := time.Now()
	if err := tr.uploadScene(req.Accel); err != nil {
		tr.uploaded = nil
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	for idx := range tr.counterData {
		tr.counterData[idx] = 0
	}
	if err := tr.counters.WriteData(tr.counterData, 0); err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	basis := req.Camera.Basis()
	err := tr.kernel.SetArgs(
		tr.nodes,
		tr.nodeCount,
		tr.primIndices,
		tr.vertices,
		tr.normals,
		tr.output,
		tr.counters,
		tr.frameW,
		tr.frameH,
		req.FrameNumber,
		uint32(req.Flags),
		req.AORadius,
		basis.Eye.Vec4(0),
		basis.Forward.Vec4(0),
		basis.Right.Vec4(0),
		basis.Up.Vec4(0),
		basis.TanHalfFOV,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	if _, err = tr.kernel.Exec2D(tr.frameW, tr.frameH, workGroupSize, workGroupSize); err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	if err = tr.output.ReadData(0, 0, 0, tr.pass.Pixels); err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}
	if err = tr.counters.ReadData(0, 0, 0, tr.counterData); err != nil {
		return fmt.Errorf("%w: %v", tracer.ErrBackendUnavailable, err)
	}

	if err = req.Accum.Merge(tr.pass); err != nil {
		return err
	}
	req.Accel.AddCounters(kernelCounters(tr.counterData))

	tr.stats.BlockH = tr.frameH
	tr.stats.RenderTime = time.Since(start)
	return nil
}

// Retrieve last pass statistics.
func (tr *clTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Shutdown and cleanup tracer.
func (tr *clTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	for _, buf := range []*device.Buffer{tr.nodes, tr.primIndices, tr.vertices, tr.normals, tr.output, tr.counters} {
		if buf != nil {
			buf.Release()
		}
	}
	if tr.kernel != nil {
		tr.kernel.Release()
		tr.kernel = nil
	}
	tr.device.Close()

	tr.uploaded = nil
	tr.pass = nil
}
