package refresh

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// OpenInterval applies while a thread is open.
	OpenInterval = 8 * time.Second
	// IdleInterval applies when no thread is open.
	IdleInterval = 15 * time.Second
	// RecentSendWindow suppresses refreshes right after a send so the
	// snapshot cannot clobber the optimistic message.
	RecentSendWindow = 3 * time.Second
)

// SkipReason explains why a tick did not refresh. The empty reason means the
// refresh started.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipModal      SkipReason = "modal"
	SkipSending    SkipReason = "sending"
	SkipRecentSend SkipReason = "recent_send"
	SkipInFlight   SkipReason = "in_flight"
)

// Conditions is the slice of client state the scheduler looks at on every
// tick.
type Conditions struct {
	ThreadOpen bool
	ModalOpen  bool
	Sending    bool
	LastSend   time.Time
}

// Options configures a Scheduler. Fetch and Conditions are required.
type Options struct {
	Fetch      func(ctx context.Context) error
	Conditions func() Conditions

	OpenInterval time.Duration
	IdleInterval time.Duration

	// OnSkip is called for every tick that did not refresh.
	OnSkip func(SkipReason)
	// OnFetch is called after every completed fetch.
	OnFetch func(elapsed time.Duration, err error)

	Now    func() time.Time
	Logger *slog.Logger
}

// Scheduler periodically refreshes the thread list. At most one fetch runs
// at a time; ticks that arrive while one is running are dropped.
type Scheduler struct {
	opts     Options
	logger   *slog.Logger
	inFlight atomic.Bool
	wg       sync.WaitGroup
}

func New(opts Options) *Scheduler {
	if opts.OpenInterval <= 0 {
		opts.OpenInterval = OpenInterval
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = IdleInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{opts: opts, logger: logger}
}

// Interval returns the period until the next tick for the current state.
func (s *Scheduler) Interval() time.Duration {
	if s.opts.Conditions().ThreadOpen {
		return s.opts.OpenInterval
	}
	return s.opts.IdleInterval
}

// InFlight reports whether a fetch is running.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

// Tick applies the suppression rules and starts a fetch when none applies.
func (s *Scheduler) Tick(ctx context.Context) SkipReason {
	reason := skipReason(s.opts.Conditions(), s.opts.Now())
	if reason == SkipNone && !s.start(ctx) {
		reason = SkipInFlight
	}
	if reason != SkipNone {
		s.logger.Debug("refresh skipped", "reason", string(reason))
		if s.opts.OnSkip != nil {
			s.opts.OnSkip(reason)
		}
	}
	return reason
}

// Trigger starts a fetch now, ignoring everything but the in-flight guard.
// It reports whether a fetch was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	return s.start(ctx)
}

// Run refreshes immediately, then ticks until ctx is done. The period is
// re-read after every tick. Run waits for the last fetch before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.wg.Wait()

	s.Trigger(ctx)
	timer := time.NewTimer(s.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.Interval())
		}
	}
}

// Wait blocks until running fetches complete.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) start(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		started := time.Now()
		err := s.opts.Fetch(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("refresh failed", "err", err)
		}
		if s.opts.OnFetch != nil {
			s.opts.OnFetch(time.Since(started), err)
		}
	}()
	return true
}

func skipReason(c Conditions, now time.Time) SkipReason {
	switch {
	case c.ModalOpen:
		return SkipModal
	case c.Sending:
		return SkipSending
	case !c.LastSend.IsZero() && now.Sub(c.LastSend) < RecentSendWindow:
		return SkipRecentSend
	}
	return SkipNone
}
