package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/state"
	"github.com/adamavenir/huddle/internal/types"
)

// ErrNotConfirmed is returned when a destructive action was not confirmed.
var ErrNotConfirmed = errors.New("not confirmed")

// createRefreshDelay gives the server time to index a new thread before the
// list is fetched again.
const createRefreshDelay = 500 * time.Millisecond

// DeletePrompt is what the user is asked before a thread is deleted.
type DeletePrompt struct {
	Title   string
	Message string
	Warning bool
}

// Confirm asks the user to approve a destructive action.
type Confirm func(DeletePrompt) bool

// DeletePromptFor builds the confirmation for deleting thread as user.
func DeletePromptFor(thread types.Thread, user types.User) DeletePrompt {
	isOwner := thread.CreatedBy == user.ID
	switch {
	case user.IsAdmin && !isOwner:
		return DeletePrompt{
			Title:   "Admin Action",
			Message: fmt.Sprintf("You are about to delete %q created by %s.\n\nThis action cannot be undone and will remove all messages.", thread.Title, thread.CreatedByName),
			Warning: true,
		}
	case isOwner:
		return DeletePrompt{
			Title:   "Delete Your Thread",
			Message: fmt.Sprintf("Are you sure you want to delete %q?\n\nThis will permanently remove all messages and cannot be undone.", thread.Title),
		}
	}
	return DeletePrompt{Title: "Delete Thread", Message: "Are you sure you want to delete this thread?"}
}

// CreateThread validates input and creates a thread owned by the user.
func (s *Session) CreateThread(ctx context.Context, input types.NewThreadInput) (types.Thread, error) {
	input, err := core.ValidateNewThread(input)
	if err != nil {
		return types.Thread{}, err
	}
	thread, err := s.opts.API.CreateThread(ctx, api.NewCreateThreadRequest(input, s.opts.User, s.opts.Now()))
	if err != nil {
		s.actionFailed(err, 3*time.Second, "Failed to create thread")
		return types.Thread{}, err
	}
	s.dispatch(state.SetModal{Open: false})
	s.dispatch(state.SetTab{Tab: types.TabMyThreads})
	s.after(createRefreshDelay, func() { s.sched.Trigger(s.ctx) })
	return thread, nil
}

// UpdateThread applies fields to a thread the user owns.
func (s *Session) UpdateThread(ctx context.Context, threadID string, fields map[string]any) (types.Thread, error) {
	thread, err := s.opts.API.UpdateThread(ctx, threadID, fields)
	if err != nil {
		s.actionFailed(err, 3*time.Second, "Failed to update thread")
		return types.Thread{}, err
	}
	s.dispatch(state.FromEvent(types.ThreadUpdatedEvent{ThreadID: threadID, Fields: fields}))
	s.notice(types.NoticeSuccess, 2*time.Second, "Thread updated successfully")
	return thread, nil
}

// DeleteThread removes a thread after confirm approves the prompt.
func (s *Session) DeleteThread(ctx context.Context, threadID string, confirm Confirm) (api.DeleteResult, error) {
	thread, ok := s.rec.Snapshot().Thread(threadID)
	if !ok {
		thread = types.Thread{ID: threadID}
	}
	if confirm == nil || !confirm(DeletePromptFor(thread, s.opts.User)) {
		return api.DeleteResult{}, ErrNotConfirmed
	}

	result, err := s.opts.API.DeleteThread(ctx, threadID, s.opts.User.ID)
	if err != nil {
		if !s.expired(err) {
			s.notice(types.NoticeError, 5*time.Second, "Error: %s", api.MessageOf(err))
		}
		return api.DeleteResult{}, err
	}
	if s.rec.Snapshot().OpenID() == threadID {
		s.dispatch(state.CloseThread{})
	}
	_ = s.fetch(ctx)

	deletedBy := result.DeletedBy
	if deletedBy == "" {
		deletedBy = "Admin"
		if thread.CreatedBy == s.opts.User.ID {
			deletedBy = "Creator"
		}
	}
	s.notice(types.NoticeSuccess, 3*time.Second, "Thread deleted successfully by %s", deletedBy)
	return result, nil
}

// RequestJoin asks to join a thread. Approval-exempt threads join at once.
func (s *Session) RequestJoin(ctx context.Context, threadID string) (api.JoinResult, error) {
	result, err := s.opts.API.RequestJoin(ctx, threadID, s.opts.User.ID)
	if err != nil {
		s.actionFailed(err, 3*time.Second, "Failed to send join request")
		return api.JoinResult{}, err
	}
	_ = s.fetch(ctx)
	s.dispatch(state.ShowNotice{Notice: joinNotice(result)})
	return result, nil
}

// HandleRequest approves or rejects userID's request to join threadID.
func (s *Session) HandleRequest(ctx context.Context, threadID, userID string, approve bool) error {
	if err := s.opts.API.HandleRequest(ctx, threadID, userID, approve, s.opts.User.ID); err != nil {
		s.actionFailed(err, 3*time.Second, "Failed to handle request")
		return err
	}
	_ = s.fetch(ctx)
	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	s.notice(types.NoticeSuccess, 2*time.Second, "Request %s successfully", verdict)
	return nil
}

func joinNotice(result api.JoinResult) types.Notice {
	if result.Joined {
		return types.Notice{Kind: types.NoticeSuccess, Message: "Joined thread successfully", Duration: 2 * time.Second}
	}
	return types.Notice{Kind: types.NoticeSuccess, Message: "Join request sent successfully", Duration: 2 * time.Second}
}

func (s *Session) actionFailed(err error, d time.Duration, text string) {
	if s.expired(err) {
		return
	}
	s.logger.Warn("action failed", "action", text, "err", err)
	s.notice(types.NoticeError, d, "%s", text)
}

func (s *Session) notice(kind types.NoticeKind, d time.Duration, format string, args ...any) {
	s.dispatch(state.ShowNotice{Notice: types.Notice{Kind: kind, Message: fmt.Sprintf(format, args...), Duration: d}})
}
