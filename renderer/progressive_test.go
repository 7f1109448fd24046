package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/tracer"
	"github.com/Sansait/Paralight/tracer/cpu"
	"github.com/Sansait/Paralight/types"
)

var errMockFault = errors.New("mock: transient fault")

// A backend that adds a constant sample per pixel.
type mockBackend struct {
	id    string
	kind  tracer.Kind
	value float32

	initCalls  int
	passes     int
	failWith   error
	countersAt []accel.Counters
	stats      tracer.Stats
}

func (m *mockBackend) Id() string        { return m.id }
func (m *mockBackend) Kind() tracer.Kind { return m.kind }
func (m *mockBackend) Stats() *tracer.Stats {
	return &m.stats
}
func (m *mockBackend) Close() {}

func (m *mockBackend) Init(frameW, frameH uint32) error {
	m.initCalls++
	return nil
}

func (m *mockBackend) RenderPass(req *tracer.PassRequest) error {
	m.countersAt = append(m.countersAt, req.Accel.Counters())
	if m.failWith != nil {
		return m.failWith
	}

	pass := tracer.NewAccumBuffer(req.Accum.Width, req.Accum.Height)
	for y := uint32(0); y < pass.Height; y++ {
		for x := uint32(0); x < pass.Width; x++ {
			pass.Set(x, y, types.XYZW(m.value, m.value, m.value, 1))
		}
	}
	m.passes++
	req.Accel.AddCounters(accel.Counters{NodesVisited: 10, TriangleTests: 3})
	return req.Accum.Merge(pass)
}

type fixture struct {
	state    *scene.State
	camera   *scene.CameraControls
	settings *Settings
	cpu      *mockBackend
	cl       *mockBackend
	r        *Progressive
}

func newFixture(t *testing.T) *fixture {
	state, err := scene.Builtin("coplanar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := &fixture{
		state:    state,
		camera:   scene.NewCameraControls(state.Snapshot().DefaultCamera),
		settings: NewSettings(Options{FrameW: 4, FrameH: 3, Backend: tracer.CPU}),
		cpu:      &mockBackend{id: "cpu", kind: tracer.CPU, value: 1},
		cl:       &mockBackend{id: "opencl", kind: tracer.OpenCL, value: 2},
	}
	f.r, err = NewProgressive(f.state, f.camera, f.settings, accel.BuildOptions{}, f.cpu, f.cl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func (f *fixture) frames(t *testing.T, count int) {
	for i := 0; i < count; i++ {
		if err := f.r.Frame(); err != nil {
			t.Fatalf("unexpected error rendering frame: %v", err)
		}
	}
}

func expectAccum(t *testing.T, r *Progressive, exp types.Vec4) {
	for y := uint32(0); y < r.accum.Height; y++ {
		for x := uint32(0); x < r.accum.Width; x++ {
			if got := r.accum.At(x, y); got != exp {
				t.Fatalf("expected pixel (%d, %d) to be %v; got %v", x, y, exp, got)
			}
		}
	}
}

func TestNeedsReset(t *testing.T) {
	state, _ := scene.Builtin("coplanar")
	base := FrameInputs{
		Options: Options{FrameW: 8, FrameH: 8},
		Camera:  state.Snapshot().DefaultCamera,
		Scene:   state.Snapshot(),
		Backend: "cpu",
	}

	type spec struct {
		mutate func(in *FrameInputs)
		exp    bool
	}
	specs := []spec{
		{func(in *FrameInputs) {}, false},
		{func(in *FrameInputs) { in.Options.Exposure = 2 }, true},
		{func(in *FrameInputs) { in.Options.Flags |= tracer.DebugNormals }, true},
		{func(in *FrameInputs) { in.Camera.Yaw += 0.1 }, true},
		{func(in *FrameInputs) { in.Scene.Version++ }, true},
		{func(in *FrameInputs) { in.Backend = "opencl" }, true},
	}

	if !needsReset(nil, base) {
		t.Fatal("expected the first frame to require a reset")
	}
	for index, s := range specs {
		cur := base
		s.mutate(&cur)
		if got := needsReset(&base, cur); got != s.exp {
			t.Fatalf("[spec %d] expected needsReset to return %t; got %t", index, s.exp, got)
		}
	}
}

func TestStaticSceneAccumulates(t *testing.T) {
	f := newFixture(t)
	f.frames(t, 5)

	if got := f.r.FrameNumber(); got != 5 {
		t.Fatalf("expected frame number 5; got %d", got)
	}
	expectAccum(t, f.r, types.XYZW(5, 5, 5, 5))

	if f.cpu.initCalls != 1 {
		t.Fatalf("expected backend to be initialized once; got %d", f.cpu.initCalls)
	}
	if stats := f.r.Stats(); stats.FrameNumber != 5 || stats.Backend != "cpu" {
		t.Fatalf("expected stats for frame 5 rendered by cpu; got %+v", stats)
	}
}

func TestInputChangesResetAccumulation(t *testing.T) {
	type spec struct {
		name   string
		change func(f *fixture)
	}
	specs := []spec{
		{"camera", func(f *fixture) { f.camera.Rotate(0, 0.2) }},
		{"options", func(f *fixture) { f.settings.ToggleFlag(tracer.AmbientOcclusion) }},
		{"scene", func(f *fixture) { f.state.SetGeometry(f.state.Snapshot().Triangles) }},
	}

	for _, s := range specs {
		f := newFixture(t)
		f.frames(t, 3)

		s.change(f)
		f.frames(t, 1)

		if got := f.r.FrameNumber(); got != 1 {
			t.Fatalf("[%s] expected frame number to restart at 1; got %d", s.name, got)
		}
		expectAccum(t, f.r, types.XYZW(1, 1, 1, 1))
	}
}

func TestSceneChangeRebuildsStructure(t *testing.T) {
	f := newFixture(t)
	f.frames(t, 1)
	first := f.r.Structure()

	f.frames(t, 1)
	if f.r.Structure() != first {
		t.Fatal("expected structure to be reused while the scene is unchanged")
	}

	cornell, _ := scene.Builtin("cornell")
	f.state.SetGeometry(cornell.Snapshot().Triangles)
	f.frames(t, 1)
	if f.r.Structure() == first {
		t.Fatal("expected structure to be rebuilt after a geometry change")
	}
	if got := f.r.Structure().Stats().Triangles; got != cornell.Snapshot().Triangles.Len() {
		t.Fatalf("expected rebuilt structure to cover %d triangles; got %d", cornell.Snapshot().Triangles.Len(), got)
	}
}

func TestEmptySceneRendersBackground(t *testing.T) {
	f := newFixture(t)
	f.state.SetGeometry(scene.NewTriangleSet(nil))
	f.frames(t, 2)

	if !f.r.Structure().Empty() {
		t.Fatal("expected an empty structure for an empty scene")
	}
	if got := f.r.FrameNumber(); got != 2 {
		t.Fatalf("expected frame number 2; got %d", got)
	}
}

func TestBackendSwitchResetsAccumulation(t *testing.T) {
	f := newFixture(t)
	f.frames(t, 4)

	if err := f.r.SelectBackend(tracer.OpenCL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.frames(t, 2)

	if got := f.r.FrameNumber(); got != 2 {
		t.Fatalf("expected frame number 2 after switching backends; got %d", got)
	}
	expectAccum(t, f.r, types.XYZW(4, 4, 4, 2))
	if f.cl.passes != 2 || f.cpu.passes != 4 {
		t.Fatalf("expected 4 cpu and 2 opencl passes; got %d and %d", f.cpu.passes, f.cl.passes)
	}
}

func TestCountersArePerFrame(t *testing.T) {
	f := newFixture(t)
	f.frames(t, 3)

	for index, c := range f.cpu.countersAt {
		if c != (accel.Counters{}) {
			t.Fatalf("[pass %d] expected counters to be zero when the pass starts; got %+v", index, c)
		}
	}

	stats := f.r.Stats()
	if stats.NodesVisited != 10 || stats.TriangleTests != 3 {
		t.Fatalf("expected counters to reflect a single frame; got %+v", stats)
	}
}

func TestFailedPassIsRolledBack(t *testing.T) {
	f := newFixture(t)
	f.frames(t, 2)

	f.cpu.failWith = errMockFault
	if err := f.r.Frame(); !errors.Is(err, errMockFault) {
		t.Fatalf("expected mock fault; got %v", err)
	}
	if got := f.r.FrameNumber(); got != 2 {
		t.Fatalf("expected frame number to be rolled back to 2; got %d", got)
	}
	expectAccum(t, f.r, types.XYZW(2, 2, 2, 2))

	// Transient failures do not disable the backend
	f.cpu.failWith = nil
	f.frames(t, 1)
	if got := f.r.FrameNumber(); got != 3 {
		t.Fatalf("expected frame number 3; got %d", got)
	}
	expectAccum(t, f.r, types.XYZW(3, 3, 3, 3))
}

func TestUnavailableBackendIsMarkedUnusable(t *testing.T) {
	f := newFixture(t)
	f.frames(t, 1)

	f.cl.failWith = tracer.ErrBackendUnavailable
	if err := f.r.SelectBackend(tracer.OpenCL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.r.Frame(); !errors.Is(err, tracer.ErrBackendUnavailable) || errors.Is(err, ErrNoUsableBackend) {
		t.Fatalf("expected ErrBackendUnavailable; got %v", err)
	}

	// No silent fallback to the cpu backend
	if err := f.r.Frame(); !errors.Is(err, tracer.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable; got %v", err)
	}
	if f.cpu.passes != 1 {
		t.Fatalf("expected the cpu backend to be left alone; got %d passes", f.cpu.passes)
	}
	if err := f.r.SelectBackend(tracer.OpenCL); !errors.Is(err, tracer.ErrBackendUnavailable) {
		t.Fatalf("expected selecting an unusable backend to fail; got %v", err)
	}
	if got := f.r.UsableBackends(); len(got) != 1 || got[0] != tracer.CPU {
		t.Fatalf("expected only the cpu backend to be usable; got %v", got)
	}

	// Explicitly switching back works and resets accumulation
	if err := f.r.SelectBackend(tracer.CPU); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.frames(t, 1)
	if got := f.r.FrameNumber(); got != 1 {
		t.Fatalf("expected frame number 1; got %d", got)
	}

	f.cpu.failWith = tracer.ErrBackendUnavailable
	if err := f.r.Frame(); !errors.Is(err, ErrNoUsableBackend) {
		t.Fatalf("expected ErrNoUsableBackend; got %v", err)
	}
	if err := f.r.Frame(); !errors.Is(err, ErrNoUsableBackend) {
		t.Fatalf("expected ErrNoUsableBackend; got %v", err)
	}
}

func TestRenderRequiresUpdate(t *testing.T) {
	f := newFixture(t)
	if err := f.r.Render(); !errors.Is(err, ErrFrameNotPrepared) {
		t.Fatalf("expected ErrFrameNotPrepared; got %v", err)
	}

	if err := f.r.Update(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.r.Render(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.r.Render(); !errors.Is(err, ErrFrameNotPrepared) {
		t.Fatalf("expected ErrFrameNotPrepared for a second Render; got %v", err)
	}
}

func TestSampleLimit(t *testing.T) {
	f := newFixture(t)
	f.settings.Update(func(o *Options) { o.SamplesPerPixel = 3 })
	f.frames(t, 6)

	if got := f.r.FrameNumber(); got != 3 {
		t.Fatalf("expected accumulation to stop at 3 samples; got %d", got)
	}
	if f.cpu.passes != 3 {
		t.Fatalf("expected 3 passes; got %d", f.cpu.passes)
	}
	if c := f.r.Structure().Counters(); c != (accel.Counters{}) {
		t.Fatalf("expected counters to be zeroed by converged frames; got %+v", c)
	}
}

func TestResetCamera(t *testing.T) {
	f := newFixture(t)
	f.camera.Move(scene.Forward, 1)
	f.camera.Rotate(0.1, 0.2)

	f.r.ResetCamera()
	if got := f.camera.Snapshot(); got != f.state.Snapshot().DefaultCamera {
		t.Fatalf("expected camera to be reset to %v; got %v", f.state.Snapshot().DefaultCamera, got)
	}
}

func TestNewProgressiveErrors(t *testing.T) {
	state, _ := scene.Builtin("coplanar")

	if _, err := NewProgressive(nil, nil, nil, accel.BuildOptions{}, &mockBackend{}); !errors.Is(err, ErrSceneNotDefined) {
		t.Fatalf("expected ErrSceneNotDefined; got %v", err)
	}
	if _, err := NewProgressive(state, nil, nil, accel.BuildOptions{}); !errors.Is(err, ErrNoBackends) {
		t.Fatalf("expected ErrNoBackends; got %v", err)
	}

	settings := NewSettings(Options{Backend: tracer.OpenCL})
	if _, err := NewProgressive(state, nil, settings, accel.BuildOptions{}, &mockBackend{kind: tracer.CPU}); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend; got %v", err)
	}
}

func TestProgressiveWithCPUBackend(t *testing.T) {
	state, err := scene.Builtin("cornell")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, err := cpu.NewTracer("cpu", cpu.Config{NumWorkers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settings := NewSettings(Options{FrameW: 16, FrameH: 16, RenderScale: 0.5, Backend: tracer.CPU})
	r, err := NewProgressive(state, nil, settings, accel.BuildOptions{}, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	for i := 0; i < 3; i++ {
		if err = r.Frame(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats := r.Stats()
	if stats.FrameNumber != 3 || stats.NodesVisited == 0 || stats.TriangleTests == 0 {
		t.Fatalf("expected populated stats after 3 frames; got %+v", stats)
	}
	if img := r.Image(); img.Rect.Dx() != 8 || img.Rect.Dy() != 8 {
		t.Fatalf("expected an 8x8 image; got %v", img.Rect)
	}
	if table := stats.Table(); !strings.Contains(table, "Triangle tests") {
		t.Fatalf("expected stats table to list triangle tests; got:\n%s", table)
	}
}

func TestUseStructure(t *testing.T) {
	f := newFixture(t)
	snap := f.state.Snapshot()

	prebuilt, err := accel.Build(snap.Triangles, accel.BuildOptions{Strategy: accel.MedianSplit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = f.r.UseStructure(prebuilt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.frames(t, 1)
	if f.r.Structure() != prebuilt {
		t.Fatal("expected the prebuilt structure to be used")
	}

	other, _ := scene.Builtin("cornell")
	foreign, err := accel.Build(other.Snapshot().Triangles, accel.BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = f.r.UseStructure(foreign); err == nil {
		t.Fatal("expected an error for a structure built from different geometry")
	}
}
