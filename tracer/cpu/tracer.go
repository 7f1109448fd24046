package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/log"
	"github.com/Sansait/Paralight/tracer"
)

// CPU tracer configuration.
type Config struct {
	// Number of worker goroutines. Defaults to runtime.NumCPU().
	NumWorkers int

	// Block scheduler name ("naive" or "perfect"). Defaults to naive.
	Scheduler string
}

// A worker renders a contiguous block of rows.
type worker struct {
	stats tracer.Stats
}

func (w *worker) Speed() uint32 {
	return 1
}

func (w *worker) Stats() *tracer.Stats {
	return &w.stats
}

type cpuTracer struct {
	logger log.Logger

	sync.Mutex

	// The tracer id.
	id string

	numWorkers int
	workers    []*worker
	renderers  []tracer.BlockRenderer
	scheduler  tracer.BlockScheduler

	frameW uint32
	frameH uint32

	// The private buffer each pass is rendered into before being merged.
	pass *tracer.AccumBuffer

	// Statistics for last rendered pass.
	stats *tracer.Stats
}

// Create a new cpu tracer.
func NewTracer(id string, cfg Config) (tracer.Tracer, error) {
	scheduler, err := tracer.SchedulerByName(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &cpuTracer{
		logger:     log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:         id,
		numWorkers: numWorkers,
		scheduler:  scheduler,
		stats:      &tracer.Stats{},
	}, nil
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Get the backend kind.
func (tr *cpuTracer) Kind() tracer.Kind {
	return tracer.CPU
}

// Allocate the pass buffer and the worker pool.
func (tr *cpuTracer) Init(frameW, frameH uint32) error {
	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("%w: invalid frame dimensions %dx%d", tracer.ErrInvalidPass, frameW, frameH)
	}

	tr.Lock()
	defer tr.Unlock()

	// Never spawn more workers than rows
	numWorkers := tr.numWorkers
	if uint32(numWorkers) > frameH {
		numWorkers = int(frameH)
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.pass = tracer.NewAccumBuffer(frameW, frameH)
	tr.workers = make([]*worker, numWorkers)
	tr.renderers = make([]tracer.BlockRenderer, numWorkers)
	for idx := range tr.workers {
		tr.workers[idx] = &worker{}
		tr.renderers[idx] = tr.workers[idx]
	}

	tr.logger.Debugf("initialized %d workers for %dx%d frames", numWorkers, frameW, frameH)
	return nil
}

// Render one sample per pixel. The frame is split into row blocks which are
// rendered in parallel into the private pass buffer; the pass buffer is
// merged into the request's accumulation buffer once all blocks complete.
func (tr *cpuTracer) RenderPass(req *tracer.PassRequest) error {
	tr.Lock()
	defer tr.Unlock()

	if tr.pass == nil {
		return tracer.ErrNotInitialized
	}
	if err := req.Validate(tr.frameW, tr.frameH); err != nil {
		return err
	}

	start := time.Now()
	basis := req.Camera.Basis()
	params := req.ShadeParams()
	blockRows := tr.scheduler.Schedule(tr.renderers, tr.frameH)

	var wg sync.WaitGroup
	var blockY uint32
	for idx, w := range tr.workers {
		blockH := blockRows[idx]
		if blockH == 0 {
			w.stats.BlockH = 0
			w.stats.RenderTime = 0
			continue
		}

		wg.Add(1)
		go func(w *worker, blockY, blockH uint32) {
			defer wg.Done()

			blockStart := time.Now()
			var rs accel.RayStats
			for y := blockY; y < blockY+blockH; y++ {
				for x := uint32(0); x < tr.frameW; x++ {
					tr.pass.Set(x, y, tracer.TracePixel(req.Accel, &basis, tr.frameW, tr.frameH, x, y, &params, &rs))
				}
			}
			req.Accel.Flush(&rs)

			w.stats.BlockH = blockH
			w.stats.RenderTime = time.Since(blockStart)
		}(w, blockY, blockH)
		blockY += blockH
	}
	wg.Wait()

	if err := req.Accum.Merge(tr.pass); err != nil {
		return err
	}

	tr.stats.BlockH = tr.frameH
	tr.stats.RenderTime = time.Since(start)
	tr.stats.BlockRows = append(tr.stats.BlockRows[:0], blockRows...)
	return nil
}

// Retrieve last pass statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()
	tr.pass = nil
	tr.workers = nil
	tr.renderers = nil
}
