package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironsheep/stencil-tools-mcp/internal/curve"
	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// Session tracks the editing state for one source image.
//
// The committed settings and the draft curves are separate values: curve
// edits only touch the draft and schedule low-fidelity previews, Commit
// copies the draft into the committed settings and schedules one
// high-fidelity run.
type Session struct {
	source stencil.PixelBuffer
	sched  *Scheduler

	mu        sync.Mutex
	committed stencil.Settings
	draft     curve.Set
}

// New creates a session for source. The source buffer is shared read-only
// with every run. Returns stencil.ErrEmptyBuffer for an empty source and a
// stencil.ErrInvalidSettings error for invalid settings.
func New(source stencil.PixelBuffer, settings stencil.Settings, opts ...Option) (*Session, error) {
	if source.Empty() {
		return nil, stencil.ErrEmptyBuffer
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		source:    source,
		committed: settings,
		draft:     settings.Curves,
	}
	s.sched = NewScheduler(s.process, opts...)
	return s, nil
}

func (s *Session) process(settings stencil.Settings, tier stencil.FidelityTier) (stencil.Artifacts, error) {
	return stencil.Process(s.source, settings, tier)
}

// Source returns the session's source buffer.
func (s *Session) Source() stencil.PixelBuffer {
	return s.source
}

// Settings returns the committed settings.
func (s *Session) Settings() stencil.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Draft returns the draft curve set.
func (s *Session) Draft() curve.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// EditResult describes the draft curve after an edit.
type EditResult struct {
	Channel curve.Channel `json:"channel"`
	Curve   curve.Curve   `json:"curve"`
	// Index is the position of the edited point, or -1 if the point was
	// removed.
	Index int `json:"index"`
	// Seq is the sequence number of the scheduled preview run.
	Seq uint64 `json:"seq"`
}

// InsertPoint adds or replaces a point on the draft curve for ch.
func (s *Session) InsertPoint(ch curve.Channel, x, y int) EditResult {
	res, _ := s.edit(ch, func(c curve.Curve) (curve.Curve, int, error) {
		n, i := c.InsertPoint(x, y)
		return n, i, nil
	})
	return res
}

// MovePoint drags point i of the draft curve for ch to (x, y).
func (s *Session) MovePoint(ch curve.Channel, i, x, y int) (EditResult, error) {
	return s.edit(ch, func(c curve.Curve) (curve.Curve, int, error) {
		return c.MovePoint(i, x, y)
	})
}

// RemovePoint removes interior point i of the draft curve for ch.
func (s *Session) RemovePoint(ch curve.Channel, i int) (EditResult, error) {
	return s.edit(ch, func(c curve.Curve) (curve.Curve, int, error) {
		n, err := c.RemovePoint(i)
		return n, -1, err
	})
}

// ResetCurve restores the identity curve for ch in the draft.
func (s *Session) ResetCurve(ch curve.Channel) EditResult {
	res, _ := s.edit(ch, func(curve.Curve) (curve.Curve, int, error) {
		return curve.Identity(), -1, nil
	})
	return res
}

// ApplyPreset replaces the whole draft with a preset's curves and schedules
// a preview.
func (s *Session) ApplyPreset(p curve.Preset) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = p.Curves
	return s.sched.RequestLow(s.committed.WithCurves(s.draft))
}

// edit applies fn to the draft curve for ch. Requests are issued while s.mu
// is held so sequence numbers follow the order of the drafts; the lock order
// is Session then Scheduler.
func (s *Session) edit(ch curve.Channel, fn func(curve.Curve) (curve.Curve, int, error)) (EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, idx, err := fn(s.draft.Get(ch))
	if err != nil {
		return EditResult{}, fmt.Errorf("edit %s curve: %w", ch, err)
	}
	s.draft = s.draft.With(ch, next)
	seq := s.sched.RequestLow(s.committed.WithCurves(s.draft))
	return EditResult{Channel: ch, Curve: next, Index: idx, Seq: seq}, nil
}

// Commit promotes the draft curves to the committed settings and schedules
// a high-fidelity run. It returns the run's sequence number.
func (s *Session) Commit() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = s.committed.WithCurves(s.draft)
	return s.sched.RequestHigh(s.committed)
}

// Update replaces the committed settings (and the draft curves) and
// schedules a high-fidelity run.
func (s *Session) Update(settings stencil.Settings) (uint64, error) {
	if err := settings.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = settings
	s.draft = settings.Curves
	return s.sched.RequestHigh(settings), nil
}

// Latest returns the most recently published artifacts.
func (s *Session) Latest() (Snapshot, bool) {
	return s.sched.Latest()
}

// Wait blocks until the run with sequence number seq, or a newer one, has
// been published. See Scheduler.Wait.
func (s *Session) Wait(ctx context.Context, seq uint64) (Snapshot, error) {
	return s.sched.Wait(ctx, seq)
}

// Close stops the session's scheduler.
func (s *Session) Close() {
	s.sched.Close()
}
