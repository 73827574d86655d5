package state

import (
	"errors"
	"reflect"

	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

var (
	ErrNotSignedIn    = errors.New("not signed in")
	ErrThreadNotFound = errors.New("thread not found")
)

// Reduce applies one input to s and returns the next state with the effects
// it requests. It never mutates s. Inputs that are refused leave the state
// unchanged.
func Reduce(s AppState, in Input, env Env) (AppState, []Effect) {
	next, effects, err := transition(s, in, env)
	if err != nil {
		return s, nil
	}
	return next, effects
}

func transition(s AppState, in Input, env Env) (AppState, []Effect, error) {
	next := s.Clone()
	var effects []Effect
	var err error

	switch in := in.(type) {
	case EventInput:
		effects = applyEvent(&next, in.Event, env)
	case SetUser:
		effects = applySetUser(&next, in)
	case Restore:
		effects = applyRestore(&next, in)
	case Snapshot:
		effects = applySnapshot(&next, in)
	case OpenThread:
		effects, err = applyOpen(&next, in.ThreadID)
	case CloseThread:
		if next.Open != nil {
			effects = append(effects, next.leave(next.Open.ID))
			next.closeOpen()
			effects = append(effects, next.persist())
		}
	case SetDraft:
		next.Draft = in.Text
	case Send:
		effects, err = applySend(&next, in.Text, env)
	case SendFailed:
		effects = applySendFailed(&next, in)
	case ClearSending:
		next.Sending = false
	case JoinFailed:
		effects = applyJoinFailed(&next, in)
	case JoinSucceeded:
		if next.Joining == in.ThreadID {
			next.Joining = ""
		}
	case SetTab:
		if !in.Tab.Valid() {
			return s, nil, errors.New("unknown tab: " + string(in.Tab))
		}
		next.Tab = in.Tab
		effects = append(effects, next.persist())
	case SetModal:
		next.ModalOpen = in.Open
	case SetLoading:
		next.Loading = in.Loading
	case ShowNotice:
		effects = append(effects, NoticeEffect{Notice: in.Notice})
	}
	if err != nil {
		return s, nil, err
	}
	if next.Open != nil && !sameThread(s.Open, next.Open) && !hasPersist(effects) {
		// chat, membership and snapshot changes to the open thread
		effects = append(effects, next.persist())
	}
	return next, effects, nil
}

func sameThread(a, b *types.Thread) bool {
	if a == nil || b == nil {
		return a == b
	}
	// Clone normalizes nil slices so only content differences count.
	return reflect.DeepEqual(a.Clone(), b.Clone())
}

func hasPersist(effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(PersistEffect); ok {
			return true
		}
	}
	return false
}

func (s *AppState) join(threadID string) Effect {
	return JoinRoomEffect{Room: types.RoomRef{ThreadID: threadID, UserID: s.UserID()}}
}

func (s *AppState) leave(threadID string) Effect {
	return LeaveRoomEffect{Room: types.RoomRef{ThreadID: threadID, UserID: s.UserID()}}
}

func (s *AppState) persist() Effect {
	c := s.Clone()
	return PersistEffect{User: c.User, Open: c.Open, Tab: c.Tab}
}

func applySetUser(s *AppState, in SetUser) []Effect {
	var effects []Effect
	if in.User == nil {
		if s.Open != nil {
			effects = append(effects, s.leave(s.Open.ID))
		}
		epoch := s.Epoch + 1
		*s = New()
		s.Epoch = epoch
		return append(effects, s.persist())
	}

	u := *in.User
	if s.User != nil && s.User.ID != u.ID && s.Open != nil {
		effects = append(effects, s.leave(s.Open.ID))
		s.closeOpen()
	}
	s.User = &u
	s.Tab = types.TabMyThreads
	s.Owned = core.OwnedBy(s.Threads, u.ID)
	s.regate()
	return append(effects, s.persist())
}

func applyRestore(s *AppState, in Restore) []Effect {
	var effects []Effect
	if in.User != nil {
		u := *in.User
		s.User = &u
		s.Owned = core.OwnedBy(s.Threads, u.ID)
	}
	if in.Tab.Valid() {
		s.Tab = in.Tab
	}
	if in.Open != nil && s.User != nil {
		t := in.Open.Clone()
		s.Open = &t
		s.Epoch++
		s.regate()
		if !s.Locked {
			effects = append(effects, s.join(t.ID))
		}
	}
	return append(effects, s.persist())
}

// applySnapshot replaces the collection wholesale. The open thread follows
// the fresh copy when the user may still see it.
func applySnapshot(s *AppState, in Snapshot) []Effect {
	uid := s.UserID()
	s.Threads = cloneThreads(in.Threads)
	if s.Joining != "" {
		// keep the unconfirmed auto-join until the server reflects it
		for i := range s.Threads {
			if s.Threads[i].ID == s.Joining {
				s.Threads[i] = core.WithMember(s.Threads[i], uid, s.Username())
			}
		}
	}
	s.Owned = core.OwnedBy(s.Threads, uid)

	if s.Open == nil {
		return nil
	}
	openID := s.Open.ID
	fresh, ok := s.Thread(openID)
	switch {
	case !ok:
		effects := []Effect{s.leave(openID)}
		s.closeOpen()
		return append(effects, s.persist())
	case fresh.IsMember(uid):
		wasLocked := s.Locked
		t := fresh.Clone()
		s.Open = &t
		s.regate()
		if wasLocked {
			return []Effect{s.join(openID)}
		}
		return nil
	case s.Locked:
		t := fresh.Clone()
		s.Open = &t
		s.regate()
		return nil
	default:
		effects := []Effect{s.leave(openID)}
		s.closeOpen()
		return append(effects, revokedNotice(), s.persist())
	}
}

// applyOpen runs the access gate for a thread the user selected.
func applyOpen(s *AppState, threadID string) ([]Effect, error) {
	if s.User == nil {
		return nil, ErrNotSignedIn
	}
	t, ok := s.Thread(threadID)
	if !ok {
		return nil, ErrThreadNotFound
	}
	t = t.Clone()
	if s.Open != nil && s.Open.ID == threadID && !s.Locked {
		return nil, nil
	}

	var effects []Effect
	if s.Open != nil && s.Open.ID != threadID {
		effects = append(effects, s.leave(s.Open.ID))
	}
	s.closeOpen()
	uid := s.UserID()

	switch {
	case t.IsMember(uid):
		s.Open = &t
		s.regate()
		effects = append(effects, s.join(threadID))
	case !t.RequiresApproval:
		s.updateThread(threadID, func(t types.Thread) types.Thread {
			return core.WithMember(t, uid, s.Username())
		})
		joined := core.WithMember(t, uid, s.Username())
		s.Open = &joined
		s.Joining = threadID
		s.regate()
		effects = append(effects,
			s.join(threadID),
			RequestJoinEffect{ThreadID: threadID, UserID: uid, Epoch: s.Epoch},
		)
	default:
		s.Open = &t
		s.regate()
		effects = append(effects, lockedNotice(s.Gate))
	}
	return append(effects, s.persist()), nil
}

// applyJoinFailed undoes an optimistic auto-join. The open thread is only
// cleared when it is still the one the join was issued for.
func applyJoinFailed(s *AppState, in JoinFailed) []Effect {
	if s.Joining == in.ThreadID {
		uid := s.UserID()
		s.updateThread(in.ThreadID, func(t types.Thread) types.Thread {
			return core.WithoutMember(t, uid)
		})
		s.Joining = ""
	}
	effects := []Effect{joinFailedNotice()}
	if in.Epoch == s.Epoch && s.OpenID() == in.ThreadID {
		effects = append(effects, s.leave(in.ThreadID))
		s.closeOpen()
		effects = append(effects, s.persist())
	}
	return effects
}
