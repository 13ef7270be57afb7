// Package pipeline runs frames through a detector and installs the results
// on the overlay.
//
// Two goroutines share the work. The detection goroutine runs at most one
// detector call at a time; a frame that arrives while a call is in flight is
// dropped. Completed passes are handed to the presentation goroutine through
// a single-value slot, and the presentation goroutine alone mutates the
// overlay, the caption display and the orientation state.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/caption"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
	"github.com/GriffinCanCode/camera-overlay/internal/overlay"
	"github.com/GriffinCanCode/camera-overlay/internal/syncx"
	"github.com/GriffinCanCode/camera-overlay/internal/trace"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

var (
	// ErrStopped is returned for events posted to a stopped pipeline.
	ErrStopped = errors.New("pipeline stopped")
	// ErrNotStarted is returned for events posted before Start.
	ErrNotStarted = errors.New("pipeline not started")
)

// Config holds pipeline settings.
type Config struct {
	Native      transform.Dimensions
	Orientation orientation.Orientation
	Bounds      transform.Bounds

	DetectionTimeout time.Duration
	MinConfidence    float64
}

// completion is one finished pass on its way to the presentation goroutine.
type completion struct {
	seq    uint64
	result detection.Result
}

// Pipeline wires a detector to an overlay surface.
type Pipeline struct {
	id       string
	cfg      Config
	detector detection.Detector

	reconciler *orientation.Reconciler
	overlay    *overlay.Manager
	captions   *caption.Store

	frames  chan camera.Frame
	results *syncx.Slot[completion]
	events  chan func()

	started     atomic.Bool
	stopCh      chan struct{}
	presentDone chan struct{} // closed when the presentation goroutine exits
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	stats   counters
	skipper atomic.Pointer[skipCounter]
}

// skipCounter is a source that discards frames before they reach OnFrame,
// such as camera.StillFilter.
type skipCounter interface {
	Skipped() uint64
}

// New creates a stopped pipeline. surface may be nil.
func New(det detection.Detector, surface overlay.Surface, cfg Config) *Pipeline {
	if cfg.DetectionTimeout <= 0 {
		cfg.DetectionTimeout = DefaultDetectionTimeout
	}
	r := orientation.NewReconciler(cfg.Native, cfg.Orientation, cfg.Bounds)
	return &Pipeline{
		id:         uuid.NewString(),
		cfg:        cfg,
		detector:   det,
		reconciler: r,
		overlay:    overlay.NewManager(surface, r.State().Transform),
		captions:   caption.NewStore(CaptionMaxEntries, CaptionEventBuffer),
		frames:     make(chan camera.Frame),
		results:    syncx.NewSlot[completion](),
		events:     make(chan func(), EventBuffer),
		stopCh:      make(chan struct{}),
		presentDone: make(chan struct{}),
	}
}

// ID identifies this pipeline instance in logs.
func (p *Pipeline) ID() string { return p.id }

// Variant is the detector family feeding the overlay.
func (p *Pipeline) Variant() detection.Variant { return p.detector.Variant() }

// Start launches the detection and presentation goroutines. Both exit when
// ctx is done or Stop is called.
func (p *Pipeline) Start(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return apperr.New(apperr.CodeUnavailable, "pipeline already stopped")
	default:
	}
	if !p.started.CompareAndSwap(false, true) {
		return apperr.New(apperr.CodeInternal, "pipeline already started")
	}

	ctx, _ = trace.EnsureContext(ctx)
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.detectLoop(ctx)
	go p.presentLoop(ctx)

	trace.Logger(ctx).Info("pipeline started",
		"pipeline_id", p.id,
		"variant", p.detector.Variant(),
		"native", p.cfg.Native,
		"orientation", p.reconciler.State().Orientation)
	return nil
}

// Stop halts both goroutines and waits for them. A pass still in flight is
// abandoned: its completion is counted as stale and never reaches the
// overlay. Safe to call more than once.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		// Closing the slot first means no completion can be taken once
		// Stop has begun.
		p.results.Close()
		close(p.stopCh)
		if p.cancel != nil {
			p.cancel()
		}
	})
	p.wg.Wait()
}

// Run starts the pipeline, feeds it from src until ctx is done or src fails,
// then stops it. Source failures are returned as ACQUISITION_FAILURE.
func (p *Pipeline) Run(ctx context.Context, src camera.Source) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	if sc, ok := src.(skipCounter); ok {
		p.skipper.Store(&sc)
	}
	err := src.Run(ctx, p.OnFrame)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if apperr.IsCode(err, apperr.CodeAcquisitionFailure) {
		return err
	}
	return apperr.Wrap(err, apperr.CodeAcquisitionFailure, "frame source failed")
}

// OnFrame offers f to the detection goroutine. It never blocks: if a pass is
// already in flight the frame is dropped.
func (p *Pipeline) OnFrame(f camera.Frame) {
	p.stats.received.Add(1)
	select {
	case p.frames <- f:
	default:
		p.stats.dropped.Add(1)
	}
}

// OnOrientationChanged applies o on the presentation goroutine and waits for
// it. An unmapped orientation leaves the previous state in effect and
// returns ORIENTATION_UNMAPPED.
func (p *Pipeline) OnOrientationChanged(o orientation.Orientation) error {
	var err error
	if postErr := p.post(func() { err = p.applyOrientation(o) }); postErr != nil {
		return postErr
	}
	return err
}

// OnLayout records new container bounds on the presentation goroutine.
func (p *Pipeline) OnLayout(b transform.Bounds) error {
	return p.post(func() {
		if p.reconciler.OnLayout(b) {
			p.overlay.ApplyTransform(p.reconciler.State().Transform)
		}
	})
}

// Orientation returns the current orientation state.
func (p *Pipeline) Orientation() orientation.State { return p.reconciler.State() }

// Snapshot returns the committed overlay state.
func (p *Pipeline) Snapshot() overlay.Snapshot { return p.overlay.Snapshot() }

// Captions is the caption display fed by barcode and classifier passes.
func (p *Pipeline) Captions() *caption.Store { return p.captions }

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	s := p.stats.snapshot()
	s.CompletionsOverwritten = p.results.Overwrites()
	if sc := p.skipper.Load(); sc != nil {
		s.FramesSkipped = (*sc).Skipped()
	}
	return s
}

// post runs fn on the presentation goroutine and waits for it. It fails
// before Start and once the presentation goroutine has exited, whether
// through Stop or through the Start context ending.
func (p *Pipeline) post(fn func()) error {
	if !p.started.Load() {
		return ErrNotStarted
	}
	done := make(chan struct{})
	select {
	case p.events <- func() { fn(); close(done) }:
	case <-p.stopCh:
		return ErrStopped
	case <-p.presentDone:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-p.stopCh:
		return ErrStopped
	case <-p.presentDone:
		return ErrStopped
	}
}

func (p *Pipeline) detectLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case f := <-p.frames:
			if !p.runPass(ctx, f) {
				return
			}
		}
	}
}

type outcome struct {
	result detection.Result
	err    error
}

// runPass runs one detector call and posts its completion. It reports false
// once the pipeline has stopped.
func (p *Pipeline) runPass(ctx context.Context, f camera.Frame) bool {
	ctx, span := trace.StartSpan(ctx, "detection_pass")
	span.SetAttr("pipeline_id", p.id)
	span.SetAttr("seq", f.Seq)

	hint := p.reconciler.State().Hint
	passCtx, cancel := context.WithTimeout(ctx, p.cfg.DetectionTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := p.detector.Detect(passCtx, f, hint)
		done <- outcome{res, err}
	}()

	var out outcome
	abandoned := false
	select {
	case out = <-done:
		if out.err != nil && errors.Is(passCtx.Err(), context.DeadlineExceeded) {
			out.err = timeoutError(out.err, p.cfg.DetectionTimeout)
		}
	case <-passCtx.Done():
		if p.stopped() || ctx.Err() != nil {
			p.stats.stale.Add(1)
			span.Finish(ErrStopped)
			return false
		}
		abandoned = true
		out.err = timeoutError(passCtx.Err(), p.cfg.DetectionTimeout)
	}

	if out.err != nil {
		p.stats.failures.Add(1)
		out.result = detection.Result{}
	}
	out.result.Detections = detection.Filter(out.result.Detections, p.cfg.MinConfidence)
	span.SetAttr("detections", len(out.result.Detections))
	span.Finish(out.err)

	if !p.results.Put(completion{seq: f.Seq, result: out.result}) {
		p.stats.stale.Add(1)
		return false
	}

	// A timed-out call still owns the detector until it returns.
	if abandoned {
		select {
		case <-done:
		case <-p.stopCh:
		}
		p.stats.stale.Add(1)
		return !p.stopped()
	}
	return true
}

func timeoutError(cause error, limit time.Duration) error {
	if apperr.IsCode(cause, apperr.CodeTimeout) {
		return cause
	}
	return apperr.Wrapf(cause, apperr.CodeTimeout, "detection exceeded %s", limit)
}

func (p *Pipeline) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

func (p *Pipeline) presentLoop(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.presentDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case fn := <-p.events:
			fn()
		case <-p.results.Ready():
			if c, ok := p.results.Take(); ok {
				p.present(ctx, c)
			}
		}
	}
}

// present installs one completed pass.
func (p *Pipeline) present(ctx context.Context, c completion) {
	p.stats.passes.Add(1)
	if p.detector.Variant().Captions() {
		p.captions.Apply(c.result.Caption, p.detector.Variant())
	}
	dims := p.reconciler.State().Dims
	snap := p.overlay.Commit(overlay.Build(c.result.Detections, dims))
	trace.Logger(ctx).Debug("pass committed",
		"seq", c.seq,
		"generation", snap.Generation,
		"primitives", len(snap.Primitives))
}

func (p *Pipeline) applyOrientation(o orientation.Orientation) error {
	changed, err := p.reconciler.OnOrientationChanged(o)
	if err != nil {
		p.stats.ignored.Add(1)
		slog.Debug("orientation ignored", "pipeline_id", p.id, "orientation", o, "error", err)
		return err
	}
	if changed {
		p.overlay.ApplyTransform(p.reconciler.State().Transform)
	}
	return nil
}
