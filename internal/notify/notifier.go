package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

// DefaultDuration applies to notices without an explicit duration.
const DefaultDuration = 3 * time.Second

const deliveryBuffer = 32

// Sink renders a notice somewhere the user will see it.
type Sink interface {
	Notify(types.Notice) error
}

// Notifier holds at most one notice at a time. A new notice replaces the
// current one and restarts the dismissal timer. Sinks run in order on a
// delivery goroutine, never on the caller's.
type Notifier struct {
	mu      sync.Mutex
	sinks   []Sink
	logger  *slog.Logger
	current *types.Notice
	timer   *time.Timer
	seq     uint64
	closed  bool

	deliveries chan types.Notice
	done       chan struct{}

	onDismiss func(types.Notice)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// OnDismiss registers a callback for notices that expire or are dismissed.
func OnDismiss(fn func(types.Notice)) Option {
	return func(n *Notifier) { n.onDismiss = fn }
}

func New(sinks []Sink, opts ...Option) *Notifier {
	n := &Notifier{
		sinks:      sinks,
		logger:     slog.Default(),
		deliveries: make(chan types.Notice, deliveryBuffer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	go n.deliver()
	return n
}

func (n *Notifier) deliver() {
	defer close(n.done)
	for notice := range n.deliveries {
		for _, sink := range n.sinks {
			if err := sink.Notify(notice); err != nil {
				n.logger.Debug("notice sink failed", "err", err)
			}
		}
	}
}

// Show replaces the current notice and fans it out to every sink.
func (n *Notifier) Show(notice types.Notice) {
	if notice.Duration <= 0 {
		notice.Duration = DefaultDuration
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	n.current = &notice
	n.timer = time.AfterFunc(notice.Duration, func() { n.expire(seq) })

	select {
	case n.deliveries <- notice:
	default:
		n.logger.Debug("notice dropped, sinks are behind", "message", notice.Message)
	}
}

// Current returns the visible notice, if any.
func (n *Notifier) Current() (types.Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return types.Notice{}, false
	}
	return *n.current, true
}

// Dismiss hides the current notice early.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	seq := n.seq
	n.mu.Unlock()
	n.expire(seq)
}

// Close stops the pending timer and waits for queued notices to reach the
// sinks. Later notices are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
	close(n.deliveries)
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	if seq != n.seq || n.current == nil {
		n.mu.Unlock()
		return
	}
	notice := *n.current
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	fn := n.onDismiss
	n.mu.Unlock()

	if fn != nil {
		fn(notice)
	}
}
