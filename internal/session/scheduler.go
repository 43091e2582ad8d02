package session

import (
	"context"
	"sync"
	"time"

	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// DefaultDebounce is the quiescence delay before a low-fidelity run starts.
const DefaultDebounce = 120 * time.Millisecond

// RunFunc executes one pipeline run.
type RunFunc func(settings stencil.Settings, tier stencil.FidelityTier) (stencil.Artifacts, error)

// Snapshot is a published run result.
type Snapshot struct {
	// Seq is the sequence number of the request that produced Artifacts.
	Seq       uint64
	Artifacts stencil.Artifacts
}

// Option configures a Scheduler or Session.
type Option func(*options)

type options struct {
	debounce  time.Duration
	onPublish func(Snapshot)
}

func defaultOptions() options {
	return options{debounce: DefaultDebounce}
}

// WithDebounce sets the quiescence delay for low-fidelity runs.
// Non-positive values run pending requests on the next timer tick.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.debounce = d
	}
}

// WithPublishHook registers fn to be called, outside the scheduler's lock,
// every time new artifacts are published.
func WithPublishHook(fn func(Snapshot)) Option {
	return func(o *options) {
		o.onPublish = fn
	}
}

type request struct {
	seq      uint64
	settings stencil.Settings
	tier     stencil.FidelityTier
}

// Scheduler coalesces run requests and publishes results in sequence order.
//
// Scheduler is safe for concurrent use.
type Scheduler struct {
	run  RunFunc
	opts options

	mu        sync.Mutex
	nextSeq   uint64
	pending   *request
	timer     *time.Timer
	published uint64
	latest    Snapshot
	failedSeq uint64
	failedErr error
	changed   chan struct{}
	closed    bool
	inflight  sync.WaitGroup
}

// NewScheduler creates a scheduler that executes requests with run.
func NewScheduler(run RunFunc, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Scheduler{
		run:     run,
		opts:    o,
		changed: make(chan struct{}),
	}
}

// RequestLow stores a low-fidelity request in the pending slot, replacing
// any request already there, and restarts the debounce timer. It returns the
// request's sequence number, or 0 if the scheduler is closed.
func (s *Scheduler) RequestLow(settings stencil.Settings) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	s.nextSeq++
	s.pending = &request{seq: s.nextSeq, settings: settings, tier: stencil.TierLow}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.opts.debounce, s.firePending)
	} else {
		s.timer.Reset(s.opts.debounce)
	}
	return s.nextSeq
}

// RequestHigh drops any pending low-fidelity request and starts a
// high-fidelity run immediately. It returns the request's sequence number,
// or 0 if the scheduler is closed.
func (s *Scheduler) RequestHigh(settings stencil.Settings) uint64 {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.nextSeq++
	req := &request{seq: s.nextSeq, settings: settings, tier: stencil.TierHigh}
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go s.execute(req)
	return req.seq
}

// firePending runs on the debounce timer's goroutine.
func (s *Scheduler) firePending() {
	s.mu.Lock()
	req := s.pending
	s.pending = nil
	if req == nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	s.execute(req)
}

func (s *Scheduler) execute(req *request) {
	defer s.inflight.Done()
	log := stencil.Logger()

	arts, err := s.run(req.settings, req.tier)

	s.mu.Lock()
	if err != nil {
		if req.seq > s.failedSeq {
			s.failedSeq, s.failedErr = req.seq, err
		}
		s.notifyLocked()
		s.mu.Unlock()
		log.Warn("run failed", "seq", req.seq, "tier", req.tier.String(), "error", err)
		return
	}
	if published := s.published; req.seq <= published {
		s.mu.Unlock()
		log.Debug("discarding stale result", "seq", req.seq, "published", published, "tier", req.tier.String())
		return
	}

	s.published = req.seq
	s.latest = Snapshot{Seq: req.seq, Artifacts: arts}
	snap := s.latest
	s.notifyLocked()
	hook := s.opts.onPublish
	s.mu.Unlock()

	log.Debug("published", "seq", snap.Seq, "tier", req.tier.String())
	if hook != nil {
		hook(snap)
	}
}

// notifyLocked wakes every Wait call. s.mu must be held.
func (s *Scheduler) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Latest returns the most recently published snapshot.
func (s *Scheduler) Latest() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.published > 0
}

// Wait blocks until a run with sequence number seq or newer has been
// published and returns the latest snapshot. If a run at or after seq fails
// before any such publication, its error is returned. Previously published
// artifacts remain available through Latest in that case.
func (s *Scheduler) Wait(ctx context.Context, seq uint64) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.published >= seq && s.published > 0 {
			snap := s.latest
			s.mu.Unlock()
			return snap, nil
		}
		if s.failedSeq >= seq && s.failedErr != nil {
			err := s.failedErr
			s.mu.Unlock()
			return Snapshot{}, err
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-ch:
		}
	}
}

// Pending reports whether a low-fidelity request is waiting for its timer.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Close drops any pending request, rejects new ones and waits for in-flight
// runs to finish. Published artifacts stay readable.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.inflight.Wait()
}
