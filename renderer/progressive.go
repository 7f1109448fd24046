package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/log"
	"github.com/Sansait/Paralight/scene"
	"github.com/Sansait/Paralight/tracer"
)

// The inputs that determine the contents of the accumulation buffer. Two
// frames rendered with equal inputs produce samples that may be summed.
type FrameInputs struct {
	Options Options
	Camera  scene.CameraState
	Scene   scene.Snapshot

	// Id of the backend that renders the frame.
	Backend string
}

// Report whether accumulation must restart. prev is nil before the first
// frame has been prepared.
func needsReset(prev *FrameInputs, cur FrameInputs) bool {
	if prev == nil {
		return true
	}

	backendSwitched := prev.Backend != cur.Backend
	return prev.Options != cur.Options ||
		prev.Camera != cur.Camera ||
		prev.Scene != cur.Scene ||
		backendSwitched
}

// Identifies the geometry the acceleration structure was built from.
type geometryKey struct {
	triangles *scene.TriangleSet
	version   uint64
}

type frameState uint8

const (
	frameIdle frameState = iota
	framePrepared
	frameConverged
)

type backendSlot struct {
	tracer tracer.Tracer

	// Film size the backend was initialized for.
	frameW, frameH uint32

	// Set once the backend reports that it can no longer render.
	unusable error
}

// Progressive renders one sample per pixel per frame and accumulates the
// samples until any of its inputs changes.
type Progressive struct {
	logger log.Logger

	sync.Mutex

	state    *scene.State
	camera   *scene.CameraControls
	settings *Settings

	buildOpts accel.BuildOptions
	structure *accel.Structure
	geometry  scene.ChangeTracker[geometryKey]

	backends map[tracer.Kind]*backendSlot
	active   *backendSlot

	accum       *tracer.AccumBuffer
	frameNumber uint32
	resetTime   time.Time

	prev      *FrameInputs
	cur       FrameInputs
	frame     frameState
	lastStats FrameStats
}

// Create a progressive renderer. The backend selected by the settings must
// be one of the supplied backends.
func NewProgressive(state *scene.State, camera *scene.CameraControls, settings *Settings, buildOpts accel.BuildOptions, backends ...tracer.Tracer) (*Progressive, error) {
	if state == nil {
		return nil, ErrSceneNotDefined
	}
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	if camera == nil {
		camera = scene.NewCameraControls(state.Snapshot().DefaultCamera)
	}
	if settings == nil {
		settings = NewSettings(Options{})
	}

	p := &Progressive{
		logger:    log.New("renderer"),
		state:     state,
		camera:    camera,
		settings:  settings,
		buildOpts: buildOpts,
		backends:  make(map[tracer.Kind]*backendSlot),
		accum:     tracer.NewAccumBuffer(1, 1),
	}

	for _, tr := range backends {
		if _, exists := p.backends[tr.Kind()]; exists {
			return nil, fmt.Errorf("renderer: duplicate %s backend %q", tr.Kind(), tr.Id())
		}
		p.backends[tr.Kind()] = &backendSlot{tracer: tr}
	}

	if _, exists := p.backends[settings.Get().Backend]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, settings.Get().Backend)
	}

	return p, nil
}

// Render the next frame.
func (p *Progressive) Frame() error {
	if err := p.Update(); err != nil {
		return err
	}
	return p.Render()
}

// Read the current inputs, rebuild the acceleration structure if the scene
// geometry changed and reset accumulation if any input differs from the
// previous frame. Per-frame counters are always zeroed.
func (p *Progressive) Update() error {
	p.Lock()
	defer p.Unlock()

	p.frame = frameIdle

	opts := p.settings.Get()
	slot, err := p.backend(opts.Backend)
	if err != nil {
		return err
	}

	snap := p.state.Snapshot()
	if p.geometry.Observe(geometryKey{snap.Triangles, snap.Version}) {
		p.rebuild(snap)
	}

	filmW, filmH := opts.FilmSize()
	if slot.frameW != filmW || slot.frameH != filmH {
		if err = slot.tracer.Init(filmW, filmH); err != nil {
			return p.markFailed(slot, err)
		}
		slot.frameW, slot.frameH = filmW, filmH
	}
	if p.accum.Resize(filmW, filmH) {
		p.logger.Debugf("resized accumulation buffer to %dx%d", filmW, filmH)
	}

	cur := FrameInputs{
		Options: opts,
		Camera:  p.camera.Snapshot(),
		Scene:   snap,
		Backend: slot.tracer.Id(),
	}
	clear := needsReset(p.prev, cur)
	p.prev = &cur
	p.cur = cur
	p.active = slot
	p.structure.ResetCounters()

	if clear {
		p.frameNumber = 0
		p.accum.Clear()
	} else if opts.SamplesPerPixel != 0 && p.frameNumber >= opts.SamplesPerPixel {
		p.frame = frameConverged
		return nil
	}

	p.frameNumber++
	if p.frameNumber == 1 {
		p.resetTime = time.Now()
	}

	p.frame = framePrepared
	return nil
}

// Dispatch a single pass to the active backend. If the pass fails the
// accumulation buffer keeps its previous contents.
func (p *Progressive) Render() error {
	p.Lock()
	defer p.Unlock()

	switch p.frame {
	case frameIdle:
		return ErrFrameNotPrepared
	case frameConverged:
		p.frame = frameIdle
		return nil
	}
	p.frame = frameIdle

	req := &tracer.PassRequest{
		Snapshot:    p.cur.Scene,
		Camera:      p.cur.Camera,
		Accel:       p.structure,
		Accum:       p.accum,
		FrameNumber: p.frameNumber,
		Flags:       p.cur.Options.Flags,
		AORadius:    p.cur.Options.AORadius,
	}

	start := time.Now()
	if err := p.active.tracer.RenderPass(req); err != nil {
		// The buffer still holds frameNumber-1 samples
		p.frameNumber--
		return p.markFailed(p.active, err)
	}
	passTime := time.Since(start)

	counters := p.structure.Counters()
	sinceReset := time.Since(p.resetTime)
	stats := FrameStats{
		FrameNumber:    p.frameNumber,
		Backend:        p.active.tracer.Id(),
		TriangleTests:  counters.TriangleTests,
		NodesVisited:   counters.NodesVisited,
		DegenerateRays: counters.DegenerateRays,
		PassTime:       passTime,
		SinceReset:     sinceReset,
	}
	if sinceReset > 0 {
		stats.SamplesPerSec = float32(float64(p.frameNumber) / sinceReset.Seconds())
	}
	if rows := p.active.tracer.Stats().BlockRows; len(rows) != 0 {
		stats.BlockRows = append([]uint32(nil), rows...)
	}
	p.lastStats = stats

	return nil
}

// Rebuild the acceleration structure for a new scene snapshot. A build
// failure leaves an empty structure that reports no hits.
func (p *Progressive) rebuild(snap scene.Snapshot) {
	p.logger.Noticef("building acceleration structure for %s", snap)

	structure, err := accel.Build(snap.Triangles, p.buildOpts)
	if err != nil {
		p.logger.Warningf("%v; rendering background only", err)
	}
	p.structure = structure

	p.camera.SetSpeed(snap.DebugScale)

	stats := structure.Stats()
	p.logger.Infof(
		"bvh: %d nodes, %d leaves, max depth %d, avg leaf size %.2f (%s in %s)",
		stats.Nodes, stats.Leaves, stats.MaxDepth, stats.AvgLeafSize, stats.Strategy, stats.BuildTime,
	)
}

// Use a prebuilt structure (for example one restored from a compiled
// scene) for the scene's current geometry instead of building one when the
// first frame is prepared.
func (p *Progressive) UseStructure(structure *accel.Structure) error {
	p.Lock()
	defer p.Unlock()

	snap := p.state.Snapshot()
	if structure == nil || structure.Triangles() != snap.Triangles {
		return fmt.Errorf("renderer: structure was not built for the geometry of %s", snap)
	}

	p.geometry.Observe(geometryKey{snap.Triangles, snap.Version})
	p.structure = structure
	p.camera.SetSpeed(snap.DebugScale)
	return nil
}

// Lookup a backend by kind.
func (p *Progressive) backend(kind tracer.Kind) (*backendSlot, error) {
	slot, exists := p.backends[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, kind)
	}
	if slot.unusable != nil {
		if !p.anyUsable() {
			return nil, fmt.Errorf("%w: %v", ErrNoUsableBackend, slot.unusable)
		}
		return nil, slot.unusable
	}
	return slot, nil
}

// Record a backend failure. Backends that report ErrBackendUnavailable are
// never used again.
func (p *Progressive) markFailed(slot *backendSlot, err error) error {
	if !errors.Is(err, tracer.ErrBackendUnavailable) {
		return err
	}

	p.logger.Errorf("backend %q is no longer usable: %v", slot.tracer.Id(), err)
	slot.unusable = err
	if !p.anyUsable() {
		return fmt.Errorf("%w: %v", ErrNoUsableBackend, err)
	}
	return err
}

func (p *Progressive) anyUsable() bool {
	for _, slot := range p.backends {
		if slot.unusable == nil {
			return true
		}
	}
	return false
}

// Switch to another backend. The switch takes effect on the next frame and
// resets accumulation.
func (p *Progressive) SelectBackend(kind tracer.Kind) error {
	p.Lock()
	defer p.Unlock()

	if _, err := p.backend(kind); err != nil {
		return err
	}
	p.settings.Update(func(o *Options) {
		o.Backend = kind
	})
	return nil
}

// Get the kinds of the registered backends that can still render.
func (p *Progressive) UsableBackends() []tracer.Kind {
	p.Lock()
	defer p.Unlock()

	list := make([]tracer.Kind, 0, len(p.backends))
	for _, kind := range []tracer.Kind{tracer.CPU, tracer.OpenCL} {
		if slot, exists := p.backends[kind]; exists && slot.unusable == nil {
			list = append(list, kind)
		}
	}
	return list
}

// Restore the camera to the scene's default pose.
func (p *Progressive) ResetCamera() {
	p.camera.Reset(p.state.Snapshot().DefaultCamera)
}

// Get the number of samples in the accumulation buffer.
func (p *Progressive) FrameNumber() uint32 {
	p.Lock()
	defer p.Unlock()
	return p.frameNumber
}

// Get the statistics of the last rendered frame.
func (p *Progressive) Stats() FrameStats {
	p.Lock()
	defer p.Unlock()
	return p.lastStats
}

// Get the acceleration structure used by the last frame.
func (p *Progressive) Structure() *accel.Structure {
	p.Lock()
	defer p.Unlock()
	return p.structure
}

// Resolve the accumulation buffer into a displayable image.
func (p *Progressive) Image() *image.RGBA {
	p.Lock()
	defer p.Unlock()
	return Resolve(p.accum, p.frameNumber, p.cur.Options.Exposure)
}

// Write the current image to a png file inside dir. The file name is built
// from the active backend id and the current time.
func (p *Progressive) Screenshot(dir string) (string, error) {
	p.Lock()
	backendId := "none"
	if p.active != nil {
		backendId = p.active.tracer.Id()
	}
	img := Resolve(p.accum, p.frameNumber, p.cur.Options.Exposure)
	p.Unlock()

	file := filepath.Join(dir, fmt.Sprintf("%s-%s.png", backendId, time.Now().Format("20060102-150405.000")))
	f, err := os.Create(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		return "", err
	}
	p.logger.Noticef("saved screenshot to %s", file)
	return file, nil
}

// Shutdown renderer and all backends.
func (p *Progressive) Close() {
	p.Lock()
	defer p.Unlock()

	for _, slot := range p.backends {
		slot.tracer.Close()
	}
	p.backends = map[tracer.Kind]*backendSlot{}
	p.active = nil
}
