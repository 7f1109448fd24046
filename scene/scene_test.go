package scene

import (
	"errors"
	"testing"

	"github.com/Sansait/Paralight/types"
	"github.com/chewxy/math32"
)

func TestTriangleSetBounds(t *testing.T) {
	ts := NewTriangleSet([]Triangle{
		NewTriangle(types.XYZ(-1, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)),
		NewTriangle(types.XYZ(0, 0, -5), types.XYZ(0, 2, -5), types.XYZ(3, 0, -5)),
	})

	bbox := ts.Bounds()
	expMin := types.XYZ(-1, 0, -5)
	expMax := types.XYZ(3, 2, 0)
	if bbox[0] != expMin || bbox[1] != expMax {
		t.Fatalf("expected bounds to be [%v, %v]; got %v", expMin, expMax, bbox)
	}

	if ts.Len() != 2 {
		t.Fatalf("expected set length to be 2; got %d", ts.Len())
	}

	var nilSet *TriangleSet
	if nilSet.Len() != 0 || nilSet.All() != nil {
		t.Fatal("expected nil set to behave as an empty set")
	}
}

func TestTriangleSetCounters(t *testing.T) {
	ts := NewTriangleSet([]Triangle{NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))})

	ts.AddTests(3)
	ts.AddTests(4)
	if got := ts.Tests(); got != 7 {
		t.Fatalf("expected test counter to be 7; got %d", got)
	}

	ts.ResetCounters()
	if got := ts.Tests(); got != 0 {
		t.Fatalf("expected test counter to be 0 after reset; got %d", got)
	}
}

func TestTriangleNormals(t *testing.T) {
	tri := NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))
	if n := tri.NormalAt(0.2, 0.2); !types.ApproxEqual(n, types.XYZ(0, 0, 1), 1e-6) {
		t.Fatalf("expected face normal (0, 0, 1); got %v", n)
	}

	smooth := NewTriangleWithNormals(
		tri.Vertices,
		[3]types.Vec3{types.XYZ(0, 0, 2), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)},
	)
	if n := smooth.NormalAt(0, 0); !types.ApproxEqual(n, types.XYZ(0, 0, 1), 1e-6) {
		t.Fatalf("expected interpolated normal at v0 to be (0, 0, 1); got %v", n)
	}
	if n := smooth.NormalAt(1, 0); !types.ApproxEqual(n, types.XYZ(1, 0, 0), 1e-6) {
		t.Fatalf("expected interpolated normal at v1 to be (1, 0, 0); got %v", n)
	}
}

func TestStateVersioning(t *testing.T) {
	s := NewState("test", NewTriangleSet(nil), CameraState{}, 0)

	snap := s.Snapshot()
	if snap.Version != 1 {
		t.Fatalf("expected initial version to be 1; got %d", snap.Version)
	}
	if snap.DebugScale != 1 {
		t.Fatalf("expected debug scale to default to 1; got %f", snap.DebugScale)
	}
	if snap.DefaultCamera.FOV != DefaultFOV {
		t.Fatalf("expected default FOV %f; got %f", DefaultFOV, snap.DefaultCamera.FOV)
	}

	if s.Snapshot() != snap {
		t.Fatal("expected snapshots of an unchanged scene to be equal")
	}

	s.SetGeometry(NewTriangleSet(nil))
	next := s.Snapshot()
	if next.Version != 2 {
		t.Fatalf("expected version to be bumped to 2; got %d", next.Version)
	}
	if next == snap {
		t.Fatal("expected snapshot to change after replacing the geometry")
	}
}

func TestCameraBasis(t *testing.T) {
	basis := CameraState{Position: types.XYZ(1, 2, 3)}.Basis()

	if basis.Eye != types.XYZ(1, 2, 3) {
		t.Fatalf("expected eye to be the camera position; got %v", basis.Eye)
	}
	if !types.ApproxEqual(basis.Forward, types.XYZ(0, 0, -1), 1e-6) {
		t.Fatalf("expected forward to be -Z; got %v", basis.Forward)
	}
	if !types.ApproxEqual(basis.Right, types.XYZ(1, 0, 0), 1e-6) {
		t.Fatalf("expected right to be +X; got %v", basis.Right)
	}
	if !types.ApproxEqual(basis.Up, types.XYZ(0, 1, 0), 1e-6) {
		t.Fatalf("expected up to be +Y; got %v", basis.Up)
	}

	expTan := math32.Tan(DefaultFOV * math32.Pi / 360)
	if math32.Abs(basis.TanHalfFOV-expTan) > 1e-6 {
		t.Fatalf("expected tan(fov/2) to be %f; got %f", expTan, basis.TanHalfFOV)
	}

	// Quarter turn around Y looks down -X
	basis = CameraState{Yaw: math32.Pi / 2}.Basis()
	if !types.ApproxEqual(basis.Forward, types.XYZ(-1, 0, 0), 1e-5) {
		t.Fatalf("expected forward to be -X; got %v", basis.Forward)
	}
}

func TestCameraControls(t *testing.T) {
	cc := NewCameraControls(CameraState{})
	cc.SetSpeed(2)
	cc.Move(Forward, 0.5)

	pos := cc.Snapshot().Position
	if !types.ApproxEqual(pos, types.XYZ(0, 0, -1), 1e-6) {
		t.Fatalf("expected camera to move to (0, 0, -1); got %v", pos)
	}

	cc.Rotate(10, 0)
	if pitch := cc.Snapshot().Pitch; pitch != maxPitch {
		t.Fatalf("expected pitch to be clamped to %f; got %f", maxPitch, pitch)
	}

	before := cc.Snapshot()
	cc.Rotate(0, 0.1)
	if cc.Snapshot() == before {
		t.Fatal("expected camera snapshot to change after rotation")
	}

	cc.Reset(CameraState{Position: types.XYZ(1, 1, 1)})
	if got := cc.Snapshot(); got.Position != types.XYZ(1, 1, 1) || got.Pitch != 0 || got.FOV != DefaultFOV {
		t.Fatalf("expected camera to be reset; got %v", got)
	}
}

func TestChangeTracker(t *testing.T) {
	var ct ChangeTracker[CameraState]

	cam := CameraState{FOV: 45}
	if !ct.Observe(cam) {
		t.Fatal("expected first observation to report a change")
	}
	if ct.Observe(cam) {
		t.Fatal("expected repeated observation not to report a change")
	}
	cam.Yaw = 1
	if !ct.Observe(cam) {
		t.Fatal("expected modified value to report a change")
	}

	ct.Invalidate()
	if _, seen := ct.Last(); seen {
		t.Fatal("expected tracker to forget the last value")
	}
	if !ct.Observe(cam) {
		t.Fatal("expected observation after invalidation to report a change")
	}
}

func TestBuiltinScenes(t *testing.T) {
	type spec struct {
		name     string
		expTris  int
		expNorms bool
	}
	specs := []spec{
		{"cornell", 34, false},
		{"coplanar", 2, false},
		{"pyramids", 2 + 16*16*4, false},
		{"sphere", 20*64 + 2, true},
	}

	for index, s := range specs {
		state, err := Builtin(s.name)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		snap := state.Snapshot()
		if snap.Triangles.Len() != s.expTris {
			t.Fatalf("[spec %d] expected %d triangles; got %d", index, s.expTris, snap.Triangles.Len())
		}
		if snap.Triangles.At(0).HasNormals != s.expNorms {
			t.Fatalf("[spec %d] expected HasNormals to be %t", index, s.expNorms)
		}
	}

	if _, err := Builtin("teapot"); !errors.Is(err, ErrUnknownScene) {
		t.Fatalf("expected ErrUnknownScene; got %v", err)
	}
}
