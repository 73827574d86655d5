package state

import (
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

func applyEvent(s *AppState, event types.Event, env Env) []Effect {
	switch e := event.(type) {
	case types.NewMessageEvent:
		applyMessage(s, e, env)
		return nil
	case types.ThreadCreatedEvent:
		return applyThreadCreated(s, e)
	case types.ThreadUpdatedEvent:
		return applyThreadUpdated(s, e)
	case types.ThreadDeletedEvent:
		return applyThreadDeleted(s, e)
	case types.JoinRequestEvent:
		return applyJoinRequest(s, e, env)
	case types.RequestHandledEvent:
		return applyRequestHandled(s, e)
	case types.MembershipChangedEvent:
		return applyMembershipChanged(s, e)
	case types.UnauthorizedEvent:
		return applyUnauthorized(s)
	}
	return nil
}

func applyThreadCreated(s *AppState, e types.ThreadCreatedEvent) []Effect {
	if e.Thread.ID == "" {
		return nil
	}
	if _, exists := s.Thread(e.Thread.ID); exists {
		return nil
	}
	t := e.Thread.Clone()
	t.MaxMembers = types.MaxMembers
	if len(t.MemberProfiles) == 0 && t.CreatedBy != "" {
		t.MemberProfiles = []types.MemberProfile{{UserID: t.CreatedBy, Username: t.CreatedByName}}
	}
	s.Threads = append(s.Threads, t)
	if uid := s.UserID(); uid != "" && t.CreatedBy == uid {
		s.Owned = append(s.Owned, t.Clone())
	}
	return []Effect{newThreadNotice(t.Title)}
}

func applyThreadUpdated(s *AppState, e types.ThreadUpdatedEvent) []Effect {
	if e.ThreadID == "" || len(e.Fields) == 0 {
		return nil
	}
	s.updateThread(e.ThreadID, func(t types.Thread) types.Thread {
		return core.MergeThread(t, e.Fields)
	})
	return s.regateOpen(e.ThreadID)
}

func applyThreadDeleted(s *AppState, e types.ThreadDeletedEvent) []Effect {
	s.removeThread(e.ThreadID)
	if s.Joining == e.ThreadID {
		s.Joining = ""
	}
	if s.OpenID() != e.ThreadID || e.ThreadID == "" {
		return nil
	}
	effects := []Effect{s.leave(e.ThreadID), deletedNotice(e.DeletedBy)}
	s.closeOpen()
	s.Tab = types.TabAllThreads
	return append(effects, s.persist())
}

func applyJoinRequest(s *AppState, e types.JoinRequestEvent, env Env) []Effect {
	username := e.Username
	if username == "" {
		username = core.FallbackUsername(e.UserID)
	}
	req := types.JoinRequest{
		UserID:      e.UserID,
		Username:    username,
		RequestedAt: core.FormatISO(env.Now),
	}
	s.updateThread(e.ThreadID, func(t types.Thread) types.Thread {
		return core.WithPendingRequest(t, req)
	})
	effects := s.regateOpen(e.ThreadID)
	return append(effects, joinRequestNotice(username))
}

func applyRequestHandled(s *AppState, e types.RequestHandledEvent) []Effect {
	uid := s.UserID()
	if uid == "" {
		return nil
	}
	username := s.Username()
	s.updateThread(e.ThreadID, func(t types.Thread) types.Thread {
		t = core.WithoutPendingRequest(t, uid)
		if e.Approved {
			t = core.WithMember(t, uid, username)
		}
		return t
	})
	if s.Joining == e.ThreadID {
		s.Joining = ""
	}

	var effects []Effect
	if s.OpenID() == e.ThreadID {
		s.regate()
		if e.Approved {
			effects = append(effects, s.join(e.ThreadID))
		}
	}
	return append(effects, requestHandledNotice(e.Approved))
}

func applyMembershipChanged(s *AppState, e types.MembershipChangedEvent) []Effect {
	if e.UserID == "" {
		return nil
	}
	s.updateThread(e.ThreadID, func(t types.Thread) types.Thread {
		return core.WithMember(t, e.UserID, e.Username)
	})
	effects := s.regateOpen(e.ThreadID)
	return append(effects, memberJoinedNotice(e.Username))
}

// applyUnauthorized revokes the open thread unconditionally. An unconfirmed
// auto-join is rolled back so later snapshots stop re-adding the user, and
// closing bumps the epoch so the in-flight join result is stale.
func applyUnauthorized(s *AppState) []Effect {
	var effects []Effect
	if s.Open != nil {
		effects = append(effects, s.leave(s.Open.ID))
	}
	if s.Joining != "" {
		uid := s.UserID()
		s.updateThread(s.Joining, func(t types.Thread) types.Thread {
			return core.WithoutMember(t, uid)
		})
		s.Joining = ""
	}
	s.closeOpen()
	s.Locked = true
	effects = append(effects, unauthorizedNotice())
	return append(effects, s.persist())
}

// regateOpen recomputes the gate when threadID is open and joins or leaves
// the room if access flipped.
func (s *AppState) regateOpen(threadID string) []Effect {
	if s.OpenID() != threadID || threadID == "" {
		return nil
	}
	wasLocked := s.Locked
	s.regate()
	switch {
	case wasLocked && !s.Locked:
		return []Effect{s.join(threadID)}
	case !wasLocked && s.Locked:
		return []Effect{s.leave(threadID)}
	}
	return nil
}
