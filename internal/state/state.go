package state

import (
	"time"

	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

// AppState is the single client-side view of the session. Only Reduce and
// the Reconciler produce new values; readers get deep copies.
type AppState struct {
	User      *types.User
	Threads   []types.Thread
	Owned     []types.Thread
	Open      *types.Thread
	Draft     string
	Loading   bool
	Sending   bool
	LastSend  time.Time
	ModalOpen bool
	Locked    bool
	Gate      types.GateStatus
	Tab       types.Tab

	// Joining is the thread whose optimistic auto-join is unconfirmed.
	Joining string

	// Epoch increments whenever the open thread is replaced or revoked so that
	// async results for an older open can be recognised and dropped.
	Epoch uint64
}

// New returns the initial logged-out state.
func New() AppState {
	return AppState{
		Threads: []types.Thread{},
		Owned:   []types.Thread{},
		Tab:     types.TabMyThreads,
	}
}

// UserID returns the current user id or "" when logged out.
func (s AppState) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Username returns the current display name or "" when logged out.
func (s AppState) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}

// OpenID returns the open thread id or "".
func (s AppState) OpenID() string {
	if s.Open == nil {
		return ""
	}
	return s.Open.ID
}

// Thread looks up a thread in the full collection.
func (s AppState) Thread(id string) (types.Thread, bool) {
	for _, t := range s.Threads {
		if t.ID == id {
			return t, true
		}
	}
	return types.Thread{}, false
}

// Clone returns a deep copy of s.
func (s AppState) Clone() AppState {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Threads = cloneThreads(s.Threads)
	out.Owned = cloneThreads(s.Owned)
	if s.Open != nil {
		t := s.Open.Clone()
		out.Open = &t
	}
	return out
}

// OpenView returns the open thread as it may be shown to the user. Chat
// history is withheld while the thread is locked.
func (s AppState) OpenView() *types.Thread {
	if s.Open == nil {
		return nil
	}
	t := s.Open.Clone()
	if s.Locked {
		t.Chat = []types.ChatMessage{}
	}
	return &t
}

// Access evaluates the gate for the open thread and current user.
func (s AppState) Access() core.Access {
	if s.Open == nil {
		return core.Access{Locked: s.Locked}
	}
	return core.CanAccess(*s.Open, s.UserID())
}

func cloneThreads(threads []types.Thread) []types.Thread {
	out := make([]types.Thread, len(threads))
	for i, t := range threads {
		out[i] = t.Clone()
	}
	return out
}

// regate recomputes the lock and gate status for the open thread.
func (s *AppState) regate() {
	if s.Open == nil {
		s.Gate = ""
		return
	}
	access := core.CanAccess(*s.Open, s.UserID())
	s.Locked = access.Locked
	s.Gate = access.Status
}

// updateThread applies fn to the matching thread in all three projections.
func (s *AppState) updateThread(id string, fn func(types.Thread) types.Thread) {
	for i := range s.Threads {
		if s.Threads[i].ID == id {
			s.Threads[i] = fn(s.Threads[i])
		}
	}
	for i := range s.Owned {
		if s.Owned[i].ID == id {
			s.Owned[i] = fn(s.Owned[i])
		}
	}
	if s.Open != nil && s.Open.ID == id {
		t := fn(*s.Open)
		s.Open = &t
	}
}

func (s *AppState) removeThread(id string) {
	s.Threads = core.FilterThreads(s.Threads, func(t types.Thread) bool { return t.ID != id })
	s.Owned = core.FilterThreads(s.Owned, func(t types.Thread) bool { return t.ID != id })
}

func (s *AppState) closeOpen() {
	s.Open = nil
	s.Locked = false
	s.Gate = ""
	s.Draft = ""
	s.Epoch++
}
