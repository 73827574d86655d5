package types

import (
	"strings"
	"time"
)

// MaxMembers is the fixed capacity of every thread.
const MaxMembers = 10

// MaxMessageLength bounds a chat message body in characters.
const MaxMessageLength = 1000

// TempIDPrefix marks client-generated message ids that the server has not
// confirmed yet.
const TempIDPrefix = "temp-"

// User represents the signed-in account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// MemberProfile pairs a member id with a display name.
type MemberProfile struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// JoinRequest is a pending request to join an approval-gated thread.
type JoinRequest struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	RequestedAt string `json:"requestedAt,omitempty"`
}

// ChatMessage represents a message in a thread's chat.
type ChatMessage struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ClientID  string `json:"clientId,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
}

// IsTemporary reports whether the message still carries a client-generated id.
func (m ChatMessage) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Thread represents a time-boxed discussion thread.
type Thread struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	CreatedBy        string          `json:"createdBy"`
	CreatedByName    string          `json:"createdByName"`
	Location         string          `json:"location,omitempty"`
	Tags             []string        `json:"tags"`
	RequiresApproval bool            `json:"requiresApproval"`
	ExpiresAt        time.Time       `json:"expiresAt,omitzero"`
	Members          []string        `json:"members"`
	MemberProfiles   []MemberProfile `json:"memberProfiles"`
	PendingRequests  []JoinRequest   `json:"pendingRequests"`
	Chat             []ChatMessage   `json:"chat"`
	CreatedAt        time.Time       `json:"createdAt,omitzero"`
	MaxMembers       int             `json:"maxMembers"`
}

// IsMember reports whether userID is the creator or a listed member.
func (t Thread) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	if t.CreatedBy == userID {
		return true
	}
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// HasPendingRequest reports whether userID has an outstanding join request.
func (t Thread) HasPendingRequest(userID string) bool {
	for _, r := range t.PendingRequests {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias reconciler state.
func (t Thread) Clone() Thread {
	out := t
	out.Tags = append([]string{}, t.Tags...)
	out.Members = append([]string{}, t.Members...)
	out.MemberProfiles = append([]MemberProfile{}, t.MemberProfiles...)
	out.PendingRequests = append([]JoinRequest{}, t.PendingRequests...)
	out.Chat = append([]ChatMessage{}, t.Chat...)
	return out
}

// Tab identifies the active list view.
type Tab string

const (
	TabMyThreads  Tab = "my-threads"
	TabAllThreads Tab = "all-threads"
)

// Valid reports whether the tab is one of the known views.
func (t Tab) Valid() bool {
	return t == TabMyThreads || t == TabAllThreads
}

// NoticeKind represents the severity of a transient notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient, auto-dismissing user-facing message.
type Notice struct {
	Kind     NoticeKind    `json:"type"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// GateStatus describes how a locked thread should be presented.
type GateStatus string

const (
	GateOpen       GateStatus = "open"
	GatePending    GateStatus = "pending"
	GateJoinPrompt GateStatus = "join"
)

// NewThreadInput carries the fields for creating a thread.
type NewThreadInput struct {
	Title            string
	Description      string
	Location         string
	Tags             []string
	Duration         time.Duration
	RequiresApproval bool
}

// DashboardStats summarizes the admin dashboard payload.
type DashboardStats struct {
	TotalThreads int      `json:"totalThreads"`
	TotalUsers   int      `json:"totalUsers"`
	ActiveUsers  int      `json:"activeUsers"`
	Threads      []Thread `json:"threads"`
}
