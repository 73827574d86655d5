package state

import (
	"fmt"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

func notice(kind types.NoticeKind, d time.Duration, format string, args ...any) Effect {
	return NoticeEffect{Notice: types.Notice{Kind: kind, Message: fmt.Sprintf(format, args...), Duration: d}}
}

func deletedNotice(deletedBy string) Effect {
	if deletedBy == "" {
		return notice(types.NoticeWarning, 3*time.Second, "This thread was deleted.")
	}
	return notice(types.NoticeWarning, 3*time.Second, "This thread was deleted by %s.", deletedBy)
}

func unauthorizedNotice() Effect {
	return notice(types.NoticeWarning, 2500*time.Millisecond, "Access denied. You are not a member of this thread.")
}

func revokedNotice() Effect {
	return notice(types.NoticeWarning, 2500*time.Millisecond, "Access denied. You must be approved to open this chat.")
}

func lockedNotice(gate types.GateStatus) Effect {
	if gate == types.GatePending {
		return notice(types.NoticeWarning, 2500*time.Millisecond, "Your request to join is pending approval.")
	}
	return notice(types.NoticeWarning, 2500*time.Millisecond, "Access denied. Request approval to open this chat.")
}

func joinFailedNotice() Effect {
	return notice(types.NoticeError, 2*time.Second, "Failed to join this thread.")
}

func newThreadNotice(title string) Effect {
	return notice(types.NoticeSuccess, 2*time.Second, "New thread: %s", title)
}

func joinRequestNotice(username string) Effect {
	return notice(types.NoticeWarning, 2500*time.Millisecond, "%s requested to join your thread", username)
}

func requestHandledNotice(approved bool) Effect {
	if approved {
		return notice(types.NoticeSuccess, 2500*time.Millisecond, "You have been approved to join this thread.")
	}
	return notice(types.NoticeWarning, 2500*time.Millisecond, "Your join request was rejected.")
}

func memberJoinedNotice(username string) Effect {
	if username == "" {
		username = "A user"
	}
	return notice(types.NoticeSuccess, 2*time.Second, "%s joined the thread", username)
}

func sendFailedNotice() Effect {
	return notice(types.NoticeError, 3*time.Second, "Failed to send message")
}
