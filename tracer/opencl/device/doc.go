// Package device wraps the OpenCL platform, device, buffer and kernel APIs.
// Its implementation is only compiled when the opencl build tag is set.
package device
