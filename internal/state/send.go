package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

// SendingHold is how long the sending flag stays set after a send. It is a
// debounce for the input, not a delivery acknowledgment.
const SendingHold = 300 * time.Millisecond

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrSendInFlight   = errors.New("a message is already being sent")
	ErrNoOpenThread   = errors.New("no thread is open")
	ErrThreadLocked   = errors.New("thread is locked for the current user")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", types.MaxMessageLength)
)

// validateSend returns the trimmed body or the reason the send is refused.
func validateSend(s AppState, text string) (string, error) {
	body := strings.TrimSpace(text)
	switch {
	case body == "":
		return "", ErrEmptyMessage
	case s.Sending:
		return "", ErrSendInFlight
	case s.User == nil:
		return "", ErrNotSignedIn
	case s.Open == nil:
		return "", ErrNoOpenThread
	case s.Locked:
		return "", ErrThreadLocked
	case utf8.RuneCountInString(body) > types.MaxMessageLength:
		return "", ErrMessageTooLong
	}
	return body, nil
}

// applySend appends a temporary message to the open thread and requests the
// publish. The temporary stays until the correlated echo replaces it.
func applySend(s *AppState, text string, env Env) ([]Effect, error) {
	body, err := validateSend(*s, text)
	if err != nil {
		return nil, err
	}
	clientID := env.newID()
	msg := types.ChatMessage{
		ID:        core.TempMessageID(env.Now),
		User:      s.User.Username,
		UserID:    s.User.ID,
		Message:   body,
		Timestamp: core.FormatISO(env.Now),
		ClientID:  clientID,
	}
	s.Open.Chat = append(s.Open.Chat, msg)
	s.Draft = ""
	s.Sending = true
	s.LastSend = env.Now

	return []Effect{
		SendEffect{Message: types.OutboundMessage{
			ThreadID: s.Open.ID,
			UserID:   s.User.ID,
			Username: s.User.Username,
			Message:  body,
			ClientID: clientID,
		}},
		ScheduleEffect{After: SendingHold, Input: ClearSending{}},
	}, nil
}

func applySendFailed(s *AppState, in SendFailed) []Effect {
	if s.Open != nil && in.ClientID != "" {
		for i := range s.Open.Chat {
			if s.Open.Chat[i].ClientID == in.ClientID && s.Open.Chat[i].IsTemporary() {
				s.Open.Chat[i].Failed = true
			}
		}
	}
	return []Effect{sendFailedNotice()}
}

// applyMessage merges an inbound message into the open thread's chat. An echo
// carrying the client id of a temporary message replaces it in place.
func applyMessage(s *AppState, e types.NewMessageEvent, env Env) {
	if s.Open == nil {
		return
	}
	target := e.ThreadID
	if target == "" {
		target = s.Open.ID
	}
	if target != s.Open.ID {
		return
	}
	msg := e.Message
	if msg.ID == "" {
		msg.ID = core.TempMessageID(env.Now)
	}
	if msg.Timestamp == "" {
		msg.Timestamp = core.FormatISO(env.Now)
	}
	if msg.ClientID != "" {
		for i := range s.Open.Chat {
			if s.Open.Chat[i].ClientID == msg.ClientID && s.Open.Chat[i].IsTemporary() {
				s.Open.Chat[i] = msg
				return
			}
		}
	}
	s.Open.Chat = append(s.Open.Chat, msg)
}
