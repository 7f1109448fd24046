// Package opencl implements a render backend that runs the trace kernel on
// an opencl device. The backend is only available when building with the
// opencl build tag; otherwise NewTracer always fails with
// tracer.ErrBackendUnavailable.
package opencl

import (
	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/types"
)

// Opencl tracer configuration.
type Config struct {
	// Device type mask ("gpu", "cpu" or "all"). When empty, gpu devices are
	// preferred and other devices are only used as a fallback.
	DeviceType string

	// Only use devices whose name contains this value.
	DeviceName string

	// Skip devices whose name contains any of these values.
	Blacklist []string
}

// Description of an opencl device as reported by ListDevices.
type DeviceInfo struct {
	Name     string
	Platform string
	Type     string
	Speed    uint32
}

// Indices into the kernel counter buffer.
const (
	counterNodesVisited = iota
	counterTriangleTests
	counterDegenerateRays
	numCounters
)

// Host-side copy of the scene data in the layout expected by the trace kernel.
type sceneBuffers struct {
	nodes       []accel.Node
	nodeCount   uint32
	primIndices []uint32

	// 3 entries per triangle.
	vertices []types.Vec4

	// 3 entries per triangle. The w component of the first normal is 1 when
	// the triangle carries vertex normals.
	normals []types.Vec4
}

// Flatten the structure and its triangles. Device buffers can not be empty
// so an empty structure yields single-entry placeholders and a zero node count.
func packScene(s *accel.Structure) *sceneBuffers {
	nodes := s.Nodes()
	if len(nodes) == 0 {
		return &sceneBuffers{
			nodes:       make([]accel.Node, 1),
			primIndices: make([]uint32, 1),
			vertices:    make([]types.Vec4, 3),
			normals:     make([]types.Vec4, 3),
		}
	}

	tris := s.Triangles().All()
	sb := &sceneBuffers{
		nodes:       nodes,
		nodeCount:   uint32(len(nodes)),
		primIndices: s.PrimIndices(),
		vertices:    make([]types.Vec4, 3*len(tris)),
		normals:     make([]types.Vec4, 3*len(tris)),
	}

	for idx := range tris {
		tri := &tris[idx]
		var hasNormals float32
		if tri.HasNormals {
			hasNormals = 1
		}
		for vIdx := 0; vIdx < 3; vIdx++ {
			sb.vertices[3*idx+vIdx] = tri.Vertices[vIdx].Vec4(1)
			if tri.HasNormals {
				sb.normals[3*idx+vIdx] = tri.Normals[vIdx].Vec4(0)
			}
		}
		sb.normals[3*idx][3] = hasNormals
	}

	return sb
}

// Convert the kernel counter buffer into structure counters.
func kernelCounters(counters []uint32) accel.Counters {
	return accel.Counters{
		NodesVisited:   uint64(counters[counterNodesVisited]),
		TriangleTests:  uint64(counters[counterTriangleTests]),
		DegenerateRays: uint64(counters[counterDegenerateRays]),
	}
}
