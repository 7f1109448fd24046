//go:build opencl

package device

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/Sansait/Paralight/types"
	"github.com/achilleasa/gopencl/v1.2/cl"
)

// Kernel is a compiled kernel of the device program.
type Kernel struct {
	device *Device
	handle cl.Kernel
	name   string

	// Work sizes are kept here so their addresses stay valid for the
	// duration of the enqueue call.
	globalWorkSize [2]uint64
	localWorkSize  [2]uint64
}

// Free any allocated resources used by this kernel.
func (k *Kernel) Release() {
	if k.handle != nil {
		cl.ReleaseKernel(k.handle)
		k.handle = nil
	}
}

func (k *Kernel) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("opencl device (%s): kernel %s: %s", k.device.Name, k.name, fmt.Sprintf(format, args...))
}

// Bind arguments to the kernel in declaration order. Supported argument
// types are buffers, 32-bit scalars and Vec4 (float4).
func (k *Kernel) SetArgs(args ...interface{}) error {
	for argIndex, arg := range args {
		var errCode cl.ErrorCode
		switch v := arg.(type) {
		case *Buffer:
			handle := v.Handle()
			errCode = k.setArg(argIndex, unsafe.Sizeof(handle), unsafe.Pointer(&handle))
		case int32:
			errCode = k.setArg(argIndex, 4, unsafe.Pointer(&v))
		case uint32:
			errCode = k.setArg(argIndex, 4, unsafe.Pointer(&v))
		case float32:
			errCode = k.setArg(argIndex, 4, unsafe.Pointer(&v))
		case types.Vec4:
			errCode = k.setArg(argIndex, 16, unsafe.Pointer(&v[0]))
		default:
			return k.errorf("could not set arg %d; unsupported arg type %T", argIndex, arg)
		}

		if errCode != cl.SUCCESS {
			return k.errorf("could not set arg %d (error: %s; code %d)", argIndex, ErrorName(errCode), errCode)
		}
	}

	return nil
}

func (k *Kernel) setArg(index int, size uintptr, value unsafe.Pointer) cl.ErrorCode {
	return cl.SetKernelArg(k.handle, uint32(index), uint64(size), value)
}

// Run the kernel over a width x height grid and wait for it to complete.
// When localW and localH are non-zero the grid is rounded up to a multiple
// of the local size, so kernels must discard out-of-range work items. With
// a zero local size the opencl implementation picks the work group split.
func (k *Kernel) Exec2D(width, height, localW, localH uint32) (time.Duration, error) {
	var localSizePtr *uint64

	k.globalWorkSize[0], k.globalWorkSize[1] = uint64(width), uint64(height)
	if localW != 0 && localH != 0 {
		k.globalWorkSize[0] = roundUp(uint64(width), uint64(localW))
		k.globalWorkSize[1] = roundUp(uint64(height), uint64(localH))
		k.localWorkSize[0], k.localWorkSize[1] = uint64(localW), uint64(localH)
		localSizePtr = &k.localWorkSize[0]
	}

	tick := time.Now()
	errCode := cl.EnqueueNDRangeKernel(
		k.device.cmdQueue,
		k.handle,
		2,
		nil,
		&k.globalWorkSize[0],
		localSizePtr,
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return 0, k.errorf("unable to execute (error: %s; code %d)", ErrorName(errCode), errCode)
	}

	if errCode = cl.Finish(k.device.cmdQueue); errCode != cl.SUCCESS {
		return 0, k.errorf("did not complete successfully (error: %s; code %d)", ErrorName(errCode), errCode)
	}

	return time.Since(tick), nil
}

func roundUp(v, multiple uint64) uint64 {
	return (v + multiple - 1) / multiple * multiple
}
