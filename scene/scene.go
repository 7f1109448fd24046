package scene

import (
	"fmt"
	"sync"

	"github.com/Sansait/Paralight/types"
)

// State holds the geometry being rendered together with the scene's own
// default camera pose and a debug scale that controls how fast the camera
// moves. The geometry may be replaced at runtime; every replacement bumps
// the scene version so that the renderer can detect the change.
type State struct {
	mu sync.Mutex

	name       string
	triangles  *TriangleSet
	camera     CameraState
	debugScale float32
	version    uint64
}

// A consistent, comparable view of the scene state. Snapshots are cheap to
// take and safe to hand to tracers; the triangle set they reference is
// never mutated after creation.
type Snapshot struct {
	Name          string
	Triangles     *TriangleSet
	DefaultCamera CameraState
	DebugScale    float32
	Version       uint64
}

// Create a new scene state.
func NewState(name string, triangles *TriangleSet, camera CameraState, debugScale float32) *State {
	if debugScale <= 0 {
		debugScale = 1
	}
	if camera.FOV <= 0 {
		camera.FOV = DefaultFOV
	}
	return &State{
		name:       name,
		triangles:  triangles,
		camera:     camera,
		debugScale: debugScale,
		version:    1,
	}
}

// Replace the scene geometry.
func (s *State) SetGeometry(triangles *TriangleSet) {
	s.mu.Lock()
	s.triangles = triangles
	s.version++
	s.mu.Unlock()
}

// Get a snapshot of the scene state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Name:          s.name,
		Triangles:     s.triangles,
		DefaultCamera: s.camera,
		DebugScale:    s.debugScale,
		Version:       s.version,
	}
}

// Get the scene extents. An empty scene reports a zero-sized box at the origin.
func (s Snapshot) Extents() [2]types.Vec3 {
	if s.Triangles.Len() == 0 {
		return [2]types.Vec3{}
	}
	return s.Triangles.Bounds()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("scene %q (v%d, %d triangles)", s.Name, s.Version, s.Triangles.Len())
}
