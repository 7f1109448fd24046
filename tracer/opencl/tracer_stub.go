//go:build !opencl

package opencl

import (
	"fmt"

	"github.com/Sansait/Paralight/tracer"
)

// Create a new opencl tracer. This build does not include opencl support.
func NewTracer(id string, cfg Config) (tracer.Tracer, error) {
	return nil, fmt.Errorf("%w: opencl support not compiled in (rebuild with -tags opencl)", tracer.ErrBackendUnavailable)
}

// List the available opencl devices. This build does not include opencl support.
func ListDevices() ([]DeviceInfo, error) {
	return nil, fmt.Errorf("%w: opencl support not compiled in (rebuild with -tags opencl)", tracer.ErrBackendUnavailable)
}
