package state

import (
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

// Input is anything the reducer accepts: realtime events wrapped by
// FromEvent, or the local commands below.
type Input interface {
	InputName() string
}

// EventInput wraps a realtime event.
type EventInput struct {
	Event types.Event
}

// FromEvent adapts a realtime event into a reducer input.
func FromEvent(e types.Event) Input {
	return EventInput{Event: e}
}

// SetUser signs a user in, or out when User is nil.
type SetUser struct {
	User *types.User
}

// Restore seeds the state from persisted session values.
type Restore struct {
	User *types.User
	Open *types.Thread
	Tab  types.Tab
}

// Snapshot replaces the thread collection with a fresh REST listing.
type Snapshot struct {
	Threads []types.Thread
}

// OpenThread opens a thread from the collection.
type OpenThread struct {
	ThreadID string
}

// CloseThread clears the open thread.
type CloseThread struct{}

// SetDraft updates the chat input text.
type SetDraft struct {
	Text string
}

// Send submits text through the optimistic send pipeline.
type Send struct {
	Text string
}

// SendFailed marks the temporary message with ClientID as failed.
type SendFailed struct {
	ClientID string
	Err      error
}

// ClearSending resets the sending flag.
type ClearSending struct{}

// JoinFailed rolls back an optimistic auto-join. Epoch is the open epoch
// the join was issued under.
type JoinFailed struct {
	ThreadID string
	Epoch    uint64
	Err      error
}

// JoinSucceeded confirms an optimistic auto-join.
type JoinSucceeded struct {
	ThreadID string
	Epoch    uint64
}

// SetTab switches the active list view.
type SetTab struct {
	Tab types.Tab
}

// SetModal records whether a create/edit/admin dialog is open.
type SetModal struct {
	Open bool
}

// SetLoading records whether a REST listing is being fetched.
type SetLoading struct {
	Loading bool
}

// ShowNotice surfaces a notice without changing state.
type ShowNotice struct {
	Notice types.Notice
}

func (e EventInput) InputName() string  { return e.Event.EventName() }
func (SetUser) InputName() string       { return "setUser" }
func (Restore) InputName() string       { return "restore" }
func (Snapshot) InputName() string      { return "snapshot" }
func (OpenThread) InputName() string    { return "openThread" }
func (CloseThread) InputName() string   { return "closeThread" }
func (SetDraft) InputName() string      { return "setDraft" }
func (Send) InputName() string          { return "send" }
func (SendFailed) InputName() string    { return "sendFailed" }
func (ClearSending) InputName() string  { return "clearSending" }
func (JoinFailed) InputName() string    { return "joinFailed" }
func (JoinSucceeded) InputName() string { return "joinSucceeded" }
func (SetTab) InputName() string        { return "setTab" }
func (SetModal) InputName() string      { return "setModal" }
func (SetLoading) InputName() string    { return "setLoading" }
func (ShowNotice) InputName() string    { return "showNotice" }

// Effect is a side effect requested by a transition. The Reconciler hands
// effects to its EffectHandler after the new state is committed.
type Effect interface {
	effect()
}

// NoticeEffect surfaces a transient notice.
type NoticeEffect struct {
	Notice types.Notice
}

// JoinRoomEffect subscribes to a thread's realtime room.
type JoinRoomEffect struct {
	Room types.RoomRef
}

// LeaveRoomEffect unsubscribes from a thread's realtime room.
type LeaveRoomEffect struct {
	Room types.RoomRef
}

// RequestJoinEffect asks the server to add the user to an approval-exempt
// thread. Failure must be reported back as JoinFailed with the same Epoch.
type RequestJoinEffect struct {
	ThreadID string
	UserID   string
	Epoch    uint64
}

// SendEffect publishes a chat message. A synchronous rejection must be
// reported back as SendFailed.
type SendEffect struct {
	Message types.OutboundMessage
}

// PersistEffect stores the restorable part of the session.
type PersistEffect struct {
	User *types.User
	Open *types.Thread
	Tab  types.Tab
}

// ScheduleEffect dispatches Input after a delay.
type ScheduleEffect struct {
	After time.Duration
	Input Input
}

func (NoticeEffect) effect()      {}
func (JoinRoomEffect) effect()    {}
func (LeaveRoomEffect) effect()   {}
func (RequestJoinEffect) effect() {}
func (SendEffect) effect()        {}
func (PersistEffect) effect()     {}
func (ScheduleEffect) effect()    {}

// Env carries the impure inputs to a transition.
type Env struct {
	Now   time.Time
	NewID func() string
}

func (e Env) newID() string {
	if e.NewID == nil {
		return ""
	}
	return e.NewID()
}
