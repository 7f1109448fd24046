package tracer

import (
	"errors"
	"testing"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/types"
)

func TestPixelSampler(t *testing.T) {
	s1 := NewPixelSampler(3, 10, 20)
	s2 := NewPixelSampler(3, 10, 20)
	for i := 0; i < 16; i++ {
		v1, v2 := s1.Next(), s2.Next()
		if v1 != v2 {
			t.Fatalf("expected samplers with the same seed to produce the same sequence; got %f and %f", v1, v2)
		}
		if v1 < 0 || v1 >= 1 {
			t.Fatalf("expected sample to be in [0, 1); got %f", v1)
		}
	}

	type spec struct {
		frame, x, y uint32
	}
	specs := []spec{{4, 10, 20}, {3, 11, 20}, {3, 10, 21}}
	ref := NewPixelSampler(3, 10, 20)
	refValue := ref.Next()
	for index, s := range specs {
		sampler := NewPixelSampler(s.frame, s.x, s.y)
		if sampler.Next() == refValue {
			t.Fatalf("[spec %d] expected a different sequence for a different seed", index)
		}
	}
}

func TestPrimaryRay(t *testing.T) {
	basis := scene.CameraState{Position: types.XYZ(0, 1, 5)}.Basis()

	ray := PrimaryRay(&basis, 2, 2, 0, 0, 1, 1)
	if ray.Origin != types.XYZ(0, 1, 5) {
		t.Fatalf("expected ray to start at the camera eye; got %v", ray.Origin)
	}
	if !types.ApproxEqual(ray.Dir, types.XYZ(0, 0, -1), 1e-6) {
		t.Fatalf("expected ray through the film center to point forward; got %v", ray.Dir)
	}

	// Top-left corner points up and left
	ray = PrimaryRay(&basis, 2, 2, 0, 0, 0, 0)
	if ray.Dir[0] >= 0 || ray.Dir[1] <= 0 {
		t.Fatalf("expected top-left ray to point up and left; got %v", ray.Dir)
	}
}

func TestAccumBuffer(t *testing.T) {
	ab := NewAccumBuffer(2, 2)
	pass := NewAccumBuffer(2, 2)
	pass.Set(1, 1, types.XYZW(1, 2, 3, 1))

	if err := ab.Merge(pass); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ab.Merge(pass); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ab.At(1, 1); got != types.XYZW(2, 4, 6, 2) {
		t.Fatalf("expected accumulated pixel (2, 4, 6, 2); got %v", got)
	}

	if err := ab.Merge(NewAccumBuffer(3, 2)); !errors.Is(err, ErrInvalidPass) {
		t.Fatalf("expected ErrInvalidPass when merging mismatched buffers; got %v", err)
	}

	if ab.Resize(2, 2) {
		t.Fatal("expected resize to the same dimensions to keep the buffer")
	}
	if !ab.Resize(4, 2) || len(ab.Pixels) != 32 {
		t.Fatalf("expected buffer to be reallocated to 32 floats; got %d", len(ab.Pixels))
	}

	ab.Set(0, 0, types.XYZW(1, 1, 1, 1))
	ab.Clear()
	if got := ab.At(0, 0); got != (types.Vec4{}) {
		t.Fatalf("expected cleared pixel to be zero; got %v", got)
	}
}

func TestPassRequestValidate(t *testing.T) {
	state, _ := scene.Builtin("coplanar")
	snap := state.Snapshot()
	tree, err := accel.Build(snap.Triangles, accel.BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type spec struct {
		req    PassRequest
		expErr error
	}
	specs := []spec{
		{PassRequest{Snapshot: snap, Accel: tree, Accum: NewAccumBuffer(4, 4), FrameNumber: 1}, nil},
		{PassRequest{Snapshot: snap, Accum: NewAccumBuffer(4, 4), FrameNumber: 1}, ErrNoSceneData},
		{PassRequest{Snapshot: snap, Accel: tree, FrameNumber: 1}, ErrInvalidPass},
		{PassRequest{Snapshot: snap, Accel: tree, Accum: NewAccumBuffer(4, 2), FrameNumber: 1}, ErrInvalidPass},
		{PassRequest{Snapshot: snap, Accel: tree, Accum: NewAccumBuffer(4, 4)}, ErrInvalidPass},
	}

	for index, s := range specs {
		err := s.req.Validate(4, 4)
		if s.expErr == nil && err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if s.expErr != nil && !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	type spec struct {
		in      string
		expKind Kind
		expErr  bool
	}
	specs := []spec{
		{"cpu", CPU, false},
		{"OpenCL", OpenCL, false},
		{"gpu", OpenCL, false},
		{"vulkan", CPU, true},
	}

	for index, s := range specs {
		kind, err := ParseKind(s.in)
		if (err != nil) != s.expErr {
			t.Fatalf("[spec %d] expected error to be %t; got %v", index, s.expErr, err)
		}
		if kind != s.expKind {
			t.Fatalf("[spec %d] expected kind %s; got %s", index, s.expKind, kind)
		}
	}
}
