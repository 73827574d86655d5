// Package session runs a signed-in client: it owns the reconciler, executes
// its effects against the REST API, the realtime transport and the state
// store, and drives the periodic refresh.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/db"
	"github.com/adamavenir/huddle/internal/metrics"
	"github.com/adamavenir/huddle/internal/realtime"
	"github.com/adamavenir/huddle/internal/refresh"
	"github.com/adamavenir/huddle/internal/state"
	"github.com/adamavenir/huddle/internal/types"
)

var (
	// ErrSessionExpired ends a session after the server answers 401.
	ErrSessionExpired = errors.New("session expired, sign in again")
	// ErrSignedOut ends a session after another process logged out.
	ErrSignedOut = errors.New("signed out elsewhere")
	// ErrClosed is returned by actions on a closed session.
	ErrClosed = errors.New("session closed")
)

const persistTimeout = 2 * time.Second

// API is the part of the REST client a session uses.
type API interface {
	ListThreads(ctx context.Context, userID string) ([]types.Thread, error)
	CreateThread(ctx context.Context, req api.CreateThreadRequest) (types.Thread, error)
	UpdateThread(ctx context.Context, threadID string, fields map[string]any) (types.Thread, error)
	DeleteThread(ctx context.Context, threadID, userID string) (api.DeleteResult, error)
	RequestJoin(ctx context.Context, threadID, userID string) (api.JoinResult, error)
	HandleRequest(ctx context.Context, threadID, userID string, approve bool, currentUserID string) error
	SendMessage(ctx context.Context, threadID string, req api.SendMessageRequest) (types.ChatMessage, error)
}

// Transport is the realtime connection.
type Transport interface {
	Publish(event string, payload any) error
	On(fn realtime.Handler) func()
	Close() error
}

// NoticeSink shows notices to the user.
type NoticeSink interface {
	Show(types.Notice)
}

// Options configures a Session. User, API and Transport are required.
type Options struct {
	User      types.User
	API       API
	Transport Transport
	Store     db.StateStore
	Notices   NoticeSink
	Metrics   *metrics.Metrics

	// CredentialsDir enables watching the credentials file; removing it or
	// signing in as someone else ends the session.
	CredentialsDir string

	OpenInterval time.Duration
	IdleInterval time.Duration

	// OnTeardown runs once when the session ends on its own. It must not
	// call Close synchronously.
	OnTeardown func(error)

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Session is a running client for one signed-in user.
type Session struct {
	opts   Options
	logger *slog.Logger
	rec    *state.Reconciler
	sched  *refresh.Scheduler

	ctx     context.Context
	cancel  context.CancelFunc
	async   sync.WaitGroup
	runDone chan struct{}

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	closed  bool
	off     func()
	watcher *core.FileWatcher

	endOnce sync.Once
	done    chan struct{}
	reason  error
}

func New(opts Options) (*Session, error) {
	if opts.User.ID == "" {
		return nil, errors.New("session requires a signed-in user")
	}
	if opts.API == nil || opts.Transport == nil {
		return nil, errors.New("session requires an api client and a transport")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:   opts,
		logger: opts.Logger,
		ctx:    ctx,
		cancel: cancel,
		timers: map[*time.Timer]struct{}{},
		done:   make(chan struct{}),
	}
	s.rec = state.NewReconciler(state.Options{
		Handler: s.handle,
		Logger:  opts.Logger,
		Now:     opts.Now,
		NewID:   opts.NewID,
		OnApply: s.observe,
	})

	schedOpts := refresh.Options{
		Fetch:        s.fetch,
		Conditions:   s.conditions,
		OpenInterval: opts.OpenInterval,
		IdleInterval: opts.IdleInterval,
		Now:          opts.Now,
		Logger:       opts.Logger,
	}
	if m := opts.Metrics; m != nil {
		schedOpts.OnSkip = func(r refresh.SkipReason) { m.ObserveSkip(string(r)) }
		schedOpts.OnFetch = m.ObserveRefresh
	}
	s.sched = refresh.New(schedOpts)
	return s, nil
}

// Start signs the user in, restores the persisted view when it belongs to the
// same user, subscribes to realtime events and starts the refresh loop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	var restored *db.Session
	if s.opts.Store != nil {
		persisted, err := db.LoadSession(ctx, s.opts.Store, s.logger)
		if err != nil {
			s.logger.Warn("load persisted session failed", "err", err)
		} else if persisted.User != nil && persisted.User.ID == s.opts.User.ID {
			restored = &persisted
		}
	}

	off := s.opts.Transport.On(s.handleEvent)
	s.mu.Lock()
	s.off = off
	s.mu.Unlock()
	s.identify()

	user := s.opts.User
	if err := s.rec.Dispatch(state.SetUser{User: &user}); err != nil {
		return err
	}
	if restored != nil {
		s.dispatch(state.Restore{Open: restored.Open, Tab: restored.Tab})
	}

	if s.opts.CredentialsDir != "" {
		watcher, err := core.WatchFile(core.CredentialsPath(s.opts.CredentialsDir), 0, s.credentialsChanged, func(err error) {
			s.logger.Warn("credentials watcher error", "err", err)
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.watcher = watcher
		s.mu.Unlock()
	}

	s.runDone = make(chan struct{})
	go func() {
		defer close(s.runDone)
		_ = s.sched.Run(s.ctx)
	}()
	return nil
}

// Resync re-identifies and rejoins the open room. Call it after the
// transport reconnects.
func (s *Session) Resync() {
	s.identify()
	st := s.rec.Snapshot()
	if st.Open != nil && !st.Locked {
		s.publish(types.PublishJoinThread, types.RoomRef{ThreadID: st.Open.ID, UserID: st.UserID()})
	}
}

// State returns a copy of the current state.
func (s *Session) State() state.AppState {
	return s.rec.Snapshot()
}

// Done is closed when the session ends on its own (expired or signed out).
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session ended, once Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Open opens a thread through the access gate.
func (s *Session) Open(threadID string) error {
	return s.rec.Open(threadID)
}

// CloseThread closes the open thread.
func (s *Session) CloseThread() error {
	return s.rec.Dispatch(state.CloseThread{})
}

// Send sends text to the open thread.
func (s *Session) Send(text string) error {
	return s.rec.Send(text)
}

// SetDraft stores the unsent input text.
func (s *Session) SetDraft(text string) error {
	return s.rec.Dispatch(state.SetDraft{Text: text})
}

// SetTab switches the list view.
func (s *Session) SetTab(tab types.Tab) error {
	return s.rec.Dispatch(state.SetTab{Tab: tab})
}

// SetModal records whether a dialog is open. Refreshes pause while it is.
func (s *Session) SetModal(open bool) error {
	return s.rec.Dispatch(state.SetModal{Open: open})
}

// Refresh fetches the thread list now.
func (s *Session) Refresh(ctx context.Context) error {
	return s.fetch(ctx)
}

// Close stops background work, leaves the open room and closes the
// transport. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	off, watcher := s.off, s.watcher
	s.mu.Unlock()

	if off != nil {
		off()
	}
	if watcher != nil {
		_ = watcher.Close()
	}
	s.cancel()
	if s.runDone != nil {
		<-s.runDone
	}
	s.async.Wait()

	st := s.rec.Snapshot()
	if st.Open != nil && !st.Locked {
		s.publish(types.PublishLeaveThread, types.RoomRef{ThreadID: st.Open.ID, UserID: st.UserID()})
	}
	return s.opts.Transport.Close()
}

func (s *Session) handleEvent(ev types.Event) {
	if s.isClosed() {
		return
	}
	s.dispatch(state.FromEvent(ev))
}

// handle executes effects. It runs under the reconciler lock: anything that
// reports back goes through goAsync or a timer.
func (s *Session) handle(e state.Effect) {
	switch e := e.(type) {
	case state.NoticeEffect:
		if s.opts.Notices != nil {
			s.opts.Notices.Show(e.Notice)
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveNotice(e.Notice)
		}
	case state.JoinRoomEffect:
		s.publish(types.PublishJoinThread, e.Room)
	case state.LeaveRoomEffect:
		s.publish(types.PublishLeaveThread, e.Room)
	case state.RequestJoinEffect:
		s.goAsync(func(ctx context.Context) { s.autoJoin(ctx, e) })
	case state.SendEffect:
		s.send(e.Message)
	case state.PersistEffect:
		s.persist(db.Session{User: e.User, Open: e.Open, Tab: e.Tab})
	case state.ScheduleEffect:
		s.after(e.After, func() { s.dispatch(e.Input) })
	}
}

func (s *Session) observe(in state.Input, st state.AppState) {
	m := s.opts.Metrics
	if m == nil {
		return
	}
	m.ObserveInput(in.InputName())
	switch in.(type) {
	case state.SendFailed:
		m.SendFailures.Inc()
	case state.Snapshot:
		m.Threads.Set(float64(len(st.Threads)))
	}
}

func (s *Session) dispatch(in state.Input) {
	if err := s.rec.Dispatch(in); err != nil {
		s.logger.Debug("input dropped", "input", in.InputName(), "err", err)
	}
}

func (s *Session) identify() {
	s.publish(types.PublishIdentify, map[string]string{"userId": s.opts.User.ID})
}

func (s *Session) publish(event string, payload any) {
	if err := s.opts.Transport.Publish(event, payload); err != nil {
		s.logger.Debug("publish failed", "event", event, "err", err)
	}
}

func (s *Session) autoJoin(ctx context.Context, e state.RequestJoinEffect) {
	result, err := s.opts.API.RequestJoin(ctx, e.ThreadID, e.UserID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if s.expired(err) {
			return
		}
		s.logger.Warn("auto-join failed", "thread", e.ThreadID, "err", err)
		s.dispatch(state.JoinFailed{ThreadID: e.ThreadID, Epoch: e.Epoch, Err: err})
		return
	}
	s.dispatch(state.JoinSucceeded{ThreadID: e.ThreadID, Epoch: e.Epoch})
	s.dispatch(state.ShowNotice{Notice: joinNotice(result)})
	s.sched.Trigger(ctx)
}

func (s *Session) send(msg types.OutboundMessage) {
	err := s.opts.Transport.Publish(types.PublishSendMessage, msg)
	if err == nil {
		return
	}
	if errors.Is(err, realtime.ErrNotConnected) {
		s.goAsync(func(ctx context.Context) { s.sendREST(ctx, msg) })
		return
	}
	s.logger.Warn("send failed", "thread", msg.ThreadID, "err", err)
	s.goAsync(func(context.Context) {
		s.dispatch(state.SendFailed{ClientID: msg.ClientID, Err: err})
	})
}

// sendREST posts the message when the socket is down. The saved copy comes
// back as a newMessage carrying the clientId, so it replaces the temporary.
func (s *Session) sendREST(ctx context.Context, msg types.OutboundMessage) {
	saved, err := s.opts.API.SendMessage(ctx, msg.ThreadID, api.SendMessageRequest{
		User:    msg.Username,
		UserID:  msg.UserID,
		Message: msg.Message,
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if s.expired(err) {
			return
		}
		s.logger.Warn("send failed", "thread", msg.ThreadID, "err", err)
		s.dispatch(state.SendFailed{ClientID: msg.ClientID, Err: err})
		return
	}
	saved.ClientID = msg.ClientID
	s.dispatch(state.FromEvent(types.NewMessageEvent{ThreadID: msg.ThreadID, Message: saved}))
}

func (s *Session) persist(session db.Session) {
	if s.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := db.SaveSession(ctx, s.opts.Store, session); err != nil {
		s.logger.Warn("persist session failed", "err", err)
	}
}

func (s *Session) fetch(ctx context.Context) error {
	uid := s.rec.Snapshot().UserID()
	if uid == "" {
		return nil
	}
	s.dispatch(state.SetLoading{Loading: true})
	threads, err := s.opts.API.ListThreads(ctx, uid)
	s.dispatch(state.SetLoading{Loading: false})
	if err != nil {
		s.expired(err)
		return err
	}
	return s.rec.Dispatch(state.Snapshot{Threads: threads})
}

func (s *Session) conditions() refresh.Conditions {
	st := s.rec.Snapshot()
	return refresh.Conditions{
		ThreadOpen: st.Open != nil,
		ModalOpen:  st.ModalOpen,
		Sending:    st.Sending,
		LastSend:   st.LastSend,
	}
}

func (s *Session) goAsync(fn func(context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.async.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.async.Done()
		fn(s.ctx)
	}()
}

// after runs fn once d has passed unless the session closes first.
func (s *Session) after(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[t]
		delete(s.timers, t)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	s.timers[t] = struct{}{}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// expired ends the session when err is a 401 and reports whether it did.
func (s *Session) expired(err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	s.end(ErrSessionExpired)
	return true
}

func (s *Session) credentialsChanged() {
	creds, err := core.LoadCredentials(s.opts.CredentialsDir)
	if err != nil {
		s.logger.Warn("read credentials failed", "err", err)
		return
	}
	if creds == nil || creds.User.ID != s.opts.User.ID {
		s.end(ErrSignedOut)
	}
}

// end signs the user out locally and stops background work. The caller
// still owns Close.
func (s *Session) end(reason error) {
	s.endOnce.Do(func() {
		s.logger.Warn("session ended", "reason", reason)
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()

		s.dispatch(state.SetUser{User: nil})
		s.cancel()
		close(s.done)
		if s.opts.OnTeardown != nil {
			s.opts.OnTeardown(reason)
		}
	})
}
