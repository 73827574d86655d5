package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

// ErrUnknownEvent is returned by Decode for event names the client does not
// handle. Such frames are skipped.
var ErrUnknownEvent = errors.New("unknown event")

// Envelope is the frame format on the wire: {"event": name, "data": payload}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRequestPayload struct {
	ThreadID string `json:"threadId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type requestHandledPayload struct {
	ThreadID string `json:"threadId"`
	Approved bool   `json:"approved"`
}

type threadDeletedPayload struct {
	ThreadID  string `json:"threadId"`
	DeletedBy string `json:"deletedBy"`
}

// Encode frames a publish.
func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Decode parses one inbound frame into an event. now stamps messages that
// arrive without an id or timestamp.
func Decode(frame []byte, now time.Time) (types.Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch env.Event {
	case types.EventNewMessage:
		raw, err := rawObject(env.Data)
		if err != nil {
			return nil, err
		}
		threadID, _ := raw["threadId"].(string)
		return types.NewMessageEvent{ThreadID: threadID, Message: core.NormalizeMessage(raw, now)}, nil

	case types.EventThreadCreated:
		raw, err := rawObject(env.Data)
		if err != nil {
			return nil, err
		}
		return types.ThreadCreatedEvent{Thread: core.NormalizeCreatedThread(raw)}, nil

	case types.EventThreadUpdated:
		raw, err := rawObject(env.Data)
		if err != nil {
			return nil, err
		}
		var id string
		for _, key := range []string{"id", "_id", "threadId"} {
			if v, ok := raw[key].(string); ok && id == "" {
				id = v
			}
			delete(raw, key)
		}
		return types.ThreadUpdatedEvent{ThreadID: id, Fields: raw}, nil

	case types.EventThreadDeleted:
		var p threadDeletedPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		return types.ThreadDeletedEvent{ThreadID: p.ThreadID, DeletedBy: p.DeletedBy}, nil

	case types.EventJoinRequest:
		var p joinRequestPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		return types.JoinRequestEvent{ThreadID: p.ThreadID, UserID: p.UserID, Username: p.Username}, nil

	case types.EventRequestHandled:
		var p requestHandledPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		return types.RequestHandledEvent{ThreadID: p.ThreadID, Approved: p.Approved}, nil

	case types.EventMembershipChanged:
		var p joinRequestPayload
		if err := decodeData(env.Data, &p); err != nil {
			return nil, err
		}
		return types.MembershipChangedEvent{ThreadID: p.ThreadID, UserID: p.UserID, Username: p.Username}, nil

	case types.EventUnauthorized:
		return types.UnauthorizedEvent{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func rawObject(data json.RawMessage) (map[string]any, error) {
	raw := map[string]any{}
	if len(data) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func decodeData(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
