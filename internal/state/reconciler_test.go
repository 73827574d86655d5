package state

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

type effectLog struct {
	mu      sync.Mutex
	effects []Effect
}

func (l *effectLog) handle(e Effect) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.effects = append(l.effects, e)
}

func (l *effectLog) all() []Effect {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Effect(nil), l.effects...)
}

func newTestReconciler(t *testing.T) (*Reconciler, *effectLog) {
	t.Helper()
	log := &effectLog{}
	r := NewReconciler(Options{
		Handler: log.handle,
		Now:     func() time.Time { return testEnv().Now },
		NewID:   func() string { return "cid-1" },
	})
	return r, log
}

func TestReconcilerDispatchRunsEffects(t *testing.T) {
	r, log := newTestReconciler(t)
	if err := r.Dispatch(SetUser{User: &alice}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if err := r.Dispatch(Snapshot{Threads: []types.Thread{makeThread("t1", alice, true)}}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := r.Open("t1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Send("hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, ok := hasEffect[JoinRoomEffect](log.all()); !ok {
		t.Fatalf("expected room join effect")
	}
	if _, ok := hasEffect[SendEffect](log.all()); !ok {
		t.Fatalf("expected send effect")
	}
	snap := r.Snapshot()
	if len(snap.Open.Chat) != 1 || snap.Open.Chat[0].Message != "hello" {
		t.Fatalf("expected optimistic message, got %+v", snap.Open.Chat)
	}
}

func TestReconcilerRefusedInputKeepsState(t *testing.T) {
	r, log := newTestReconciler(t)
	if err := r.Send("hello"); err != ErrNotSignedIn {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if err := r.Open("missing"); err != ErrNotSignedIn {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if len(log.all()) != 0 {
		t.Fatalf("refused inputs must not produce effects")
	}
}

func TestReconcilerSnapshotIsDeepCopy(t *testing.T) {
	r, _ := newTestReconciler(t)
	_ = r.Dispatch(SetUser{User: &alice})
	_ = r.Dispatch(Snapshot{Threads: []types.Thread{makeThread("t1", alice, true)}})

	snap := r.Snapshot()
	snap.Threads[0].Members[0] = "mutated"
	snap.User.Username = "mutated"

	again := r.Snapshot()
	if again.Threads[0].Members[0] != alice.ID || again.User.Username != alice.Username {
		t.Fatalf("snapshot aliased reconciler state")
	}
}

func TestReconcilerOnApply(t *testing.T) {
	var names []string
	r := NewReconciler(Options{OnApply: func(in Input, _ AppState) {
		names = append(names, in.InputName())
	}})
	_ = r.Dispatch(SetUser{User: &alice})
	_ = r.Dispatch(FromEvent(types.UnauthorizedEvent{}))
	_ = r.Open("missing")

	want := []string{"setUser", types.EventUnauthorized}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}

func TestReconcilerSerializesConcurrentEvents(t *testing.T) {
	r, _ := newTestReconciler(t)
	_ = r.Dispatch(SetUser{User: &alice})
	_ = r.Dispatch(Snapshot{Threads: []types.Thread{makeThread("t1", alice, true)}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = r.Dispatch(FromEvent(types.MembershipChangedEvent{
					ThreadID: "t1",
					UserID:   fmt.Sprintf("u-%d", i),
					Username: fmt.Sprintf("user%d", i),
				}))
			}
		}(i)
	}
	wg.Wait()

	snap := r.Snapshot()
	if got := len(snap.Threads[0].Members); got != 9 {
		t.Fatalf("expected creator plus 8 members, got %d", got)
	}
}
