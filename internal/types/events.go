package types

// Event is an inbound real-time event. The concrete types below are the only
// implementations.
type Event interface {
	EventName() string
}

// Event names on the realtime channel.
const (
	EventNewMessage        = "newMessage"
	EventThreadCreated     = "threadCreated"
	EventThreadUpdated     = "threadUpdated"
	EventThreadDeleted     = "threadDeleted"
	EventJoinRequest       = "joinRequest"
	EventRequestHandled    = "requestHandled"
	EventMembershipChanged = "membershipChanged"
	EventUnauthorized      = "unauthorized"
)

// Outbound event names.
const (
	PublishJoinThread  = "joinThread"
	PublishLeaveThread = "leaveThread"
	PublishIdentify    = "identify"
	PublishSendMessage = "sendMessage"
)

// NewMessageEvent carries a chat message. An empty ThreadID means the message
// was delivered to the room currently joined.
type NewMessageEvent struct {
	ThreadID string
	Message  ChatMessage
}

// ThreadCreatedEvent announces a new thread, already normalized.
type ThreadCreatedEvent struct {
	Thread Thread
}

// ThreadUpdatedEvent carries the raw fields to shallow-merge into a thread.
type ThreadUpdatedEvent struct {
	ThreadID string
	Fields   map[string]any
}

// ThreadDeletedEvent announces that a thread was removed.
type ThreadDeletedEvent struct {
	ThreadID  string
	DeletedBy string
}

// JoinRequestEvent is delivered to a creator when someone asks to join.
type JoinRequestEvent struct {
	ThreadID string
	UserID   string
	Username string
}

// RequestHandledEvent is delivered to a requester after the creator decides.
type RequestHandledEvent struct {
	ThreadID string
	Approved bool
}

// MembershipChangedEvent announces that someone joined a thread.
type MembershipChangedEvent struct {
	ThreadID string
	UserID   string
	Username string
}

// UnauthorizedEvent is sent when the server refuses access to a room.
type UnauthorizedEvent struct{}

func (NewMessageEvent) EventName() string        { return EventNewMessage }
func (ThreadCreatedEvent) EventName() string     { return EventThreadCreated }
func (ThreadUpdatedEvent) EventName() string     { return EventThreadUpdated }
func (ThreadDeletedEvent) EventName() string     { return EventThreadDeleted }
func (JoinRequestEvent) EventName() string       { return EventJoinRequest }
func (RequestHandledEvent) EventName() string    { return EventRequestHandled }
func (MembershipChangedEvent) EventName() string { return EventMembershipChanged }
func (UnauthorizedEvent) EventName() string      { return EventUnauthorized }

// OutboundMessage is the payload published for sendMessage.
type OutboundMessage struct {
	ThreadID string `json:"threadId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
	ClientID string `json:"clientId,omitempty"`
}

// RoomRef is the payload for joinThread and leaveThread.
type RoomRef struct {
	ThreadID string `json:"threadId"`
	UserID   string `json:"userId,omitempty"`
}
