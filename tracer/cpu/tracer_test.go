package cpu

import (
	"errors"
	"testing"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/tracer"
)

func passRequest(t *testing.T, name string, w, h uint32) *tracer.PassRequest {
	state, err := scene.Builtin(name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := state.Snapshot()
	tree, err := accel.Build(snap.Triangles, accel.BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &tracer.PassRequest{
		Snapshot:    snap,
		Camera:      snap.DefaultCamera,
		Accel:       tree,
		Accum:       tracer.NewAccumBuffer(w, h),
		FrameNumber: 1,
	}
}

func TestRenderPassMatchesSingleWorker(t *testing.T) {
	const w, h = 16, 12

	type spec struct {
		workers   int
		scheduler string
	}
	specs := []spec{
		{1, "naive"},
		{3, "naive"},
		{4, "perfect"},
		{64, "naive"},
	}

	var reference *tracer.AccumBuffer
	for index, s := range specs {
		tr, err := NewTracer("cpu", Config{NumWorkers: s.workers, Scheduler: s.scheduler})
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if err = tr.Init(w, h); err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}

		req := passRequest(t, "cornell", w, h)
		for frame := uint32(1); frame <= 2; frame++ {
			req.FrameNumber = frame
			if err = tr.RenderPass(req); err != nil {
				t.Fatalf("[spec %d] unexpected error: %v", index, err)
			}
		}
		tr.Close()

		var rows uint32
		for _, blockH := range tr.Stats().BlockRows {
			rows += blockH
		}
		if rows != h {
			t.Fatalf("[spec %d] expected block rows to add up to %d; got %d", index, h, rows)
		}

		if reference == nil {
			reference = req.Accum
			continue
		}
		for i, v := range req.Accum.Pixels {
			if v != reference.Pixels[i] {
				t.Fatalf("[spec %d] expected output to be independent of the worker count; pixel component %d differs", index, i)
			}
		}
	}

	// Every pixel received two samples
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			if alpha := reference.At(x, y)[3]; alpha != 2 {
				t.Fatalf("expected pixel (%d, %d) alpha to be 2; got %f", x, y, alpha)
			}
		}
	}
}

func TestRenderPassCounters(t *testing.T) {
	tr, err := NewTracer("cpu", Config{NumWorkers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = tr.Init(8, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tr.Close()

	req := passRequest(t, "cornell", 8, 8)
	req.Accel.ResetCounters()
	if err = tr.RenderPass(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := req.Accel.Counters()
	if c.NodesVisited < 64 || c.TriangleTests == 0 {
		t.Fatalf("expected at least one node visit per pixel and some triangle tests; got %+v", c)
	}
}

func TestRenderPassFailureLeavesBufferUntouched(t *testing.T) {
	tr, err := NewTracer("cpu", Config{NumWorkers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := passRequest(t, "cornell", 8, 8)
	if err = tr.RenderPass(req); !errors.Is(err, tracer.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized; got %v", err)
	}

	if err = tr.Init(4, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = tr.RenderPass(req); !errors.Is(err, tracer.ErrInvalidPass) {
		t.Fatalf("expected ErrInvalidPass for mismatched buffer; got %v", err)
	}

	req.Accel = nil
	if err = tr.RenderPass(req); !errors.Is(err, tracer.ErrNoSceneData) {
		t.Fatalf("expected ErrNoSceneData; got %v", err)
	}

	for i, v := range req.Accum.Pixels {
		if v != 0 {
			t.Fatalf("expected buffer to be untouched; component %d is %f", i, v)
		}
	}
}

func TestNewTracerUnknownScheduler(t *testing.T) {
	if _, err := NewTracer("cpu", Config{Scheduler: "fancy"}); err == nil {
		t.Fatal("expected an error for an unknown scheduler")
	}
}
