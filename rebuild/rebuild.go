// Package rebuild coalesces content mutations into debounced calls to an
// external static-site build trigger.
package rebuild

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	DefaultDebounce = 10 * time.Second
	DefaultReason   = "content-updated"
	triggerTimeout  = 30 * time.Second
)

// Request is one coalesced rebuild call.
type Request struct {
	Reason string
	IDs    []int64
}

// Trigger starts an external rebuild. Implementations make a single attempt.
type Trigger interface {
	Name() string
	Trigger(ctx context.Context, req Request) error
}

// Timer is the subset of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

// Clock creates timers. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Scheduler debounces Schedule calls: every call resets the timer, and when it
// finally fires the accumulated ids go out as one trigger call. Failures are
// logged and never retried.
type Scheduler struct {
	trigger  Trigger
	debounce time.Duration
	reason   string
	clock    Clock
	logger   zerolog.Logger
	calls    *prometheus.CounterVec

	mu      sync.Mutex
	pending map[int64]struct{}
	dirty   bool
	timer   Timer
	gen     uint64
	closed  bool

	inflight sync.WaitGroup
}

type Option func(*Scheduler)

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithLogger(l zerolog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

func WithReason(reason string) Option {
	return func(s *Scheduler) {
		if reason != "" {
			s.reason = reason
		}
	}
}

// WithRegisterer exports trigger results as folio_rebuild_triggers_total.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Scheduler) {
		s.calls = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "rebuild",
			Name:      "triggers_total",
			Help:      "Rebuild trigger calls by result.",
		}, []string{"result"})
	}
}

func NewScheduler(trigger Trigger, debounce time.Duration, opts ...Option) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	s := &Scheduler{
		trigger:  trigger,
		debounce: debounce,
		reason:   DefaultReason,
		clock:    realClock{},
		logger:   zerolog.Nop(),
		pending:  map[int64]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// Schedule records id and restarts the debounce window. It never blocks on
// the trigger. Calls after Close are dropped.
func (s *Scheduler) Schedule(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.pending[id] = struct{}{}
	s.restart()
}

// ScheduleSite restarts the debounce window for a change that is not tied to a
// project, such as studio copy or project types.
func (s *Scheduler) ScheduleSite() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.restart()
}

// restart marks the scheduler dirty and rearms the timer. Callers hold mu.
func (s *Scheduler) restart() {
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
}

// Pending returns the ids waiting for the next flush, sorted.
func (s *Scheduler) Pending() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.pending)
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	// A timer that was superseded may still fire if Stop lost the race.
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	ids, dirty := s.take()
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	if dirty {
		s.flush(context.Background(), ids)
	}
}

// take empties the pending set. Callers hold mu.
func (s *Scheduler) take() ([]int64, bool) {
	ids, dirty := sortedIDs(s.pending), s.dirty
	s.pending = map[int64]struct{}{}
	s.dirty = false
	s.timer = nil
	return ids, dirty
}

func (s *Scheduler) flush(ctx context.Context, ids []int64) {
	ctx, cancel := context.WithTimeout(ctx, triggerTimeout)
	defer cancel()

	err := s.trigger.Trigger(ctx, Request{Reason: s.reason, IDs: ids})
	if err != nil {
		s.count("error")
		s.logger.Error().Err(err).Str("trigger", s.trigger.Name()).Ints64("ids", ids).Msg("rebuild trigger failed")
		return
	}

	s.count("ok")
	s.logger.Info().Str("trigger", s.trigger.Name()).Ints64("ids", ids).Msg("rebuild triggered")
}

func (s *Scheduler) count(result string) {
	if s.calls != nil {
		s.calls.WithLabelValues(result).Inc()
	}
}

// Close stops the timer, flushes anything pending immediately and waits for
// in-flight trigger calls, bounded by ctx.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	ids, dirty := s.take()
	s.mu.Unlock()

	if dirty {
		s.flush(ctx, ids)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("rebuild flush did not finish"), ctx.Err())
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Noop discards rebuild requests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Trigger(context.Context, Request) error { return nil }
