package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/adamavenir/huddle/internal/core"
)

// EffectHandler executes effects on behalf of the reconciler. It runs while
// the dispatch lock is held, so it must not call Dispatch synchronously; work
// that blocks or reports back belongs on a goroutine.
type EffectHandler func(Effect)

// Options configures a Reconciler.
type Options struct {
	Handler EffectHandler
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string

	// OnApply observes every committed input, for metrics.
	OnApply func(Input, AppState)
}

// Reconciler owns the application state. Every input is applied as one step
// under a single lock and its effects run, in order, before the next input is
// taken.
type Reconciler struct {
	mu      sync.Mutex
	state   AppState
	handler EffectHandler
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	onApply func(Input, AppState)
}

// NewReconciler creates a reconciler in the logged-out state.
func NewReconciler(opts Options) *Reconciler {
	r := &Reconciler{
		state:   New(),
		handler: opts.Handler,
		logger:  opts.Logger,
		now:     opts.Now,
		newID:   opts.NewID,
		onApply: opts.OnApply,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = core.NewCorrelationID
	}
	return r
}

// Dispatch applies in and runs the resulting effects. Refused inputs return
// their reason and leave the state untouched.
func (r *Reconciler) Dispatch(in Input) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, effects, err := transition(r.state, in, Env{Now: r.now(), NewID: r.newID})
	if err != nil {
		r.logger.Debug("input refused", "input", in.InputName(), "err", err)
		return err
	}
	r.state = next
	if r.onApply != nil {
		r.onApply(in, next)
	}
	r.logger.Debug("input applied", "input", in.InputName(), "effects", len(effects), "open", next.OpenID())
	if r.handler != nil {
		for _, effect := range effects {
			r.handler(effect)
		}
	}
	return nil
}

// Snapshot returns a deep copy of the current state.
func (r *Reconciler) Snapshot() AppState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Send runs the optimistic send pipeline for text.
func (r *Reconciler) Send(text string) error {
	return r.Dispatch(Send{Text: text})
}

// Open opens threadID through the access gate.
func (r *Reconciler) Open(threadID string) error {
	return r.Dispatch(OpenThread{ThreadID: threadID})
}
