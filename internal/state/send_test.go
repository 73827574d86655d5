package state

import (
	"errors"
	"strings"
	"testing"

	"github.com/adamavenir/huddle/internal/types"
)

func openState(t *testing.T) AppState {
	t.Helper()
	s := signedIn(t, alice, makeThread("t1", alice, true))
	s, _ = apply(t, s, OpenThread{ThreadID: "t1"}, SetDraft{Text: "hello"})
	return s
}

func TestSendAppendsTemporaryMessage(t *testing.T) {
	s := openState(t)

	s, effects := apply(t, s, Send{Text: "  hello  "})
	last := s.Open.Chat[len(s.Open.Chat)-1]
	if last.Message != "hello" {
		t.Fatalf("expected body hello, got %q", last.Message)
	}
	if !last.IsTemporary() || !strings.HasPrefix(last.ID, types.TempIDPrefix) {
		t.Fatalf("expected temporary id, got %q", last.ID)
	}
	if last.ClientID != "cid-1" || last.UserID != alice.ID || last.User != alice.Username {
		t.Fatalf("unexpected message %+v", last)
	}
	if s.Draft != "" || !s.Sending || s.LastSend.IsZero() {
		t.Fatalf("expected draft cleared and sending set, got draft=%q sending=%v", s.Draft, s.Sending)
	}

	sent, ok := hasEffect[SendEffect](effects)
	if !ok {
		t.Fatalf("expected a send effect")
	}
	want := types.OutboundMessage{ThreadID: "t1", UserID: alice.ID, Username: alice.Username, Message: "hello", ClientID: "cid-1"}
	if sent.Message != want {
		t.Fatalf("unexpected outbound %+v", sent.Message)
	}
	sched, ok := hasEffect[ScheduleEffect](effects)
	if !ok || sched.After != SendingHold {
		t.Fatalf("expected sending flag release after %s", SendingHold)
	}
	if _, ok := sched.Input.(ClearSending); !ok {
		t.Fatalf("expected ClearSending to be scheduled, got %T", sched.Input)
	}

	s, _ = apply(t, s, sched.Input)
	if s.Sending {
		t.Fatalf("expected sending flag cleared")
	}
}

func TestSendRejections(t *testing.T) {
	open := openState(t)
	sending, _ := apply(t, open, Send{Text: "first"})
	locked := signedIn(t, carol, makeThread("t1", alice, true))
	locked, _ = apply(t, locked, OpenThread{ThreadID: "t1"})

	tests := []struct {
		name  string
		state AppState
		text  string
		want  error
	}{
		{name: "empty", state: open, text: "", want: ErrEmptyMessage},
		{name: "whitespace", state: open, text: " \n\t ", want: ErrEmptyMessage},
		{name: "in flight", state: sending, text: "second", want: ErrSendInFlight},
		{name: "signed out", state: New(), text: "hi", want: ErrNotSignedIn},
		{name: "nothing open", state: signedIn(t, alice), text: "hi", want: ErrNoOpenThread},
		{name: "locked", state: locked, text: "hi", want: ErrThreadLocked},
		{name: "too long", state: open, text: strings.Repeat("x", types.MaxMessageLength+1), want: ErrMessageTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, effects, err := transition(tc.state, Send{Text: tc.text}, testEnv())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if effects != nil {
				t.Fatalf("expected no effects on rejection")
			}
			if next.Open != nil && len(next.Open.Chat) != len(tc.state.Open.Chat) {
				t.Fatalf("rejected send changed the chat")
			}
		})
	}
}

func TestSendAcceptsMaxLengthMultibyte(t *testing.T) {
	s := openState(t)
	body := strings.Repeat("é", types.MaxMessageLength)
	if _, _, err := transition(s, Send{Text: body}, testEnv()); err != nil {
		t.Fatalf("expected %d characters accepted, got %v", types.MaxMessageLength, err)
	}
}

func TestEchoReplacesTemporary(t *testing.T) {
	s := openState(t)
	s, _ = apply(t, s, Send{Text: "hello"})

	echo := types.ChatMessage{
		ID:        "m-100",
		User:      alice.Username,
		UserID:    alice.ID,
		Message:   "hello",
		Timestamp: "2025-03-01T12:00:00.250Z",
		ClientID:  "cid-1",
	}
	s, _ = apply(t, s, event(types.NewMessageEvent{ThreadID: "t1", Message: echo}))
	if len(s.Open.Chat) != 1 {
		t.Fatalf("expected echo to replace the temporary, got %d messages", len(s.Open.Chat))
	}
	if s.Open.Chat[0].ID != "m-100" || s.Open.Chat[0].IsTemporary() {
		t.Fatalf("expected confirmed message, got %+v", s.Open.Chat[0])
	}
}

func TestMessageWithoutCorrelationAppends(t *testing.T) {
	s := openState(t)
	s, _ = apply(t, s, Send{Text: "hello"})

	echo := types.ChatMessage{ID: "m-100", UserID: alice.ID, Message: "hello", Timestamp: "2025-03-01T12:00:00.250Z"}
	s, _ = apply(t, s, event(types.NewMessageEvent{Message: echo}))
	if len(s.Open.Chat) != 2 {
		t.Fatalf("expected temporary and echo side by side, got %d", len(s.Open.Chat))
	}
}

func TestSendFailedFlagsTemporary(t *testing.T) {
	s := openState(t)
	s, _ = apply(t, s, Send{Text: "hello"})

	s, effects := apply(t, s, SendFailed{ClientID: "cid-1", Err: errors.New("socket closed")})
	if !s.Open.Chat[0].Failed {
		t.Fatalf("expected temporary flagged as failed")
	}
	if len(s.Open.Chat) != 1 {
		t.Fatalf("expected no rollback of the temporary")
	}
	n := requireNotice(t, effects, "Failed to send message")
	if n.Kind != types.NoticeError {
		t.Fatalf("expected error notice, got %q", n.Kind)
	}
}
