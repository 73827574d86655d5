package notify

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

type recordingSink struct {
	mu      sync.Mutex
	notices []types.Notice
	err     error
}

func (s *recordingSink) Notify(n types.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notices)
}

func (s *recordingSink) all() []types.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Notice(nil), s.notices...)
}

type blockingSink struct {
	release <-chan struct{}
}

func (s *blockingSink) Notify(types.Notice) error {
	<-s.release
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestShowAppliesDefaultDuration(t *testing.T) {
	sink := &recordingSink{}
	n := New([]Sink{sink})
	defer n.Close()

	n.Show(types.Notice{Kind: types.NoticeSuccess, Message: "saved"})
	current, ok := n.Current()
	if !ok || current.Message != "saved" || current.Duration != DefaultDuration {
		t.Fatalf("unexpected current notice %+v ok=%v", current, ok)
	}
	waitFor(t, func() bool { return sink.count() == 1 })
	if got := sink.all()[0].Duration; got != DefaultDuration {
		t.Fatalf("expected sink to receive default duration, got %s", got)
	}
}

func TestShowDoesNotWaitForSinks(t *testing.T) {
	release := make(chan struct{})
	slow := &blockingSink{release: release}
	sink := &recordingSink{}
	n := New([]Sink{slow, sink})

	shown := make(chan struct{})
	go func() {
		n.Show(types.Notice{Message: "one"})
		n.Show(types.Notice{Message: "two"})
		close(shown)
	}()
	select {
	case <-shown:
	case <-time.After(2 * time.Second):
		t.Fatalf("Show blocked on a slow sink")
	}
	if current, ok := n.Current(); !ok || current.Message != "two" {
		t.Fatalf("expected latest notice current, got %+v", current)
	}

	close(release)
	n.Close()
	got := sink.all()
	if len(got) != 2 || got[0].Message != "one" || got[1].Message != "two" {
		t.Fatalf("expected both notices delivered in order, got %+v", got)
	}
}

func TestNoticeExpires(t *testing.T) {
	dismissed := make(chan types.Notice, 1)
	n := New(nil, OnDismiss(func(notice types.Notice) { dismissed <- notice }))
	defer n.Close()

	n.Show(types.Notice{Kind: types.NoticeWarning, Message: "soon gone", Duration: 10 * time.Millisecond})
	select {
	case notice := <-dismissed:
		if notice.Message != "soon gone" {
			t.Fatalf("unexpected dismissed notice %+v", notice)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notice never expired")
	}
	if _, ok := n.Current(); ok {
		t.Fatalf("expected no current notice")
	}
}

func TestNewNoticeReplacesAndRestartsTimer(t *testing.T) {
	var mu sync.Mutex
	var dismissed []string
	n := New(nil, OnDismiss(func(notice types.Notice) {
		mu.Lock()
		dismissed = append(dismissed, notice.Message)
		mu.Unlock()
	}))
	defer n.Close()

	n.Show(types.Notice{Message: "first", Duration: 20 * time.Millisecond})
	n.Show(types.Notice{Message: "second", Duration: time.Hour})

	time.Sleep(60 * time.Millisecond)
	current, ok := n.Current()
	if !ok || current.Message != "second" {
		t.Fatalf("expected replacement to stay visible, got %+v ok=%v", current, ok)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(dismissed) != 0 {
		t.Fatalf("replaced notice must not fire its timer, got %v", dismissed)
	}
}

func TestDismissAndClose(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	n := New([]Sink{sink})

	n.Show(types.Notice{Message: "one", Duration: time.Hour})
	n.Dismiss()
	if _, ok := n.Current(); ok {
		t.Fatalf("expected dismissed")
	}

	n.Close()
	n.Show(types.Notice{Message: "after close"})
	if _, ok := n.Current(); ok {
		t.Fatalf("notices after close must be dropped")
	}
	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestTerminalSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf)

	if err := sink.Notify(types.Notice{Kind: types.NoticeError, Message: "Failed to send message"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := sink.Notify(types.Notice{Kind: types.NoticeWarning, Message: "bo requested to join your thread"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "✗ Failed to send message") || !strings.Contains(lines[1], "! bo requested") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestDesktopSinkTruncates(t *testing.T) {
	var gotTitle, gotBody string
	sink := &DesktopSink{title: "huddle", send: func(title, message string) error {
		gotTitle, gotBody = title, message
		return nil
	}}

	long := strings.Repeat("é", 150)
	if err := sink.Notify(types.Notice{Kind: types.NoticeError, Message: long}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotTitle != "huddle · error" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if n := len([]rune(gotBody)); n != desktopBodyLimit || !strings.HasSuffix(gotBody, "…") {
		t.Fatalf("expected %d runes ending in ellipsis, got %d", desktopBodyLimit, n)
	}

	if got := truncateNotification("  a \n b  ", 10); got != "a b" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}
