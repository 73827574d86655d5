package core

import "github.com/adamavenir/huddle/internal/types"

// Access is the outcome of the access gate for one thread and user.
type Access struct {
	Member bool
	Locked bool
	Status types.GateStatus
}

// CanAccess decides whether userID may view and send in thread. The creator
// is always a member even when absent from Members.
func CanAccess(thread types.Thread, userID string) Access {
	if thread.IsMember(userID) {
		return Access{Member: true, Status: types.GateOpen}
	}
	status := types.GateJoinPrompt
	if thread.HasPendingRequest(userID) {
		status = types.GatePending
	}
	return Access{Locked: true, Status: status}
}

// WithMember returns a copy of thread with userID unioned into the members
// and, when username is non-empty, into the profiles.
func WithMember(thread types.Thread, userID, username string) types.Thread {
	out := thread.Clone()
	if userID == "" {
		return out
	}
	out.Members = appendUnique(out.Members, userID)
	if username != "" {
		out.MemberProfiles = upsertProfile(out.MemberProfiles, types.MemberProfile{UserID: userID, Username: username})
	}
	return out
}

// WithoutMember returns a copy of thread with userID dropped from the
// members and profiles. The creator cannot be removed.
func WithoutMember(thread types.Thread, userID string) types.Thread {
	out := thread.Clone()
	members := out.Members[:0]
	for _, m := range out.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	out.Members = members
	profiles := out.MemberProfiles[:0]
	for _, p := range out.MemberProfiles {
		if p.UserID != userID || userID == thread.CreatedBy {
			profiles = append(profiles, p)
		}
	}
	out.MemberProfiles = profiles
	return out
}

// WithPendingRequest returns a copy of thread with req appended. Duplicates
// are kept; the next snapshot is authoritative.
func WithPendingRequest(thread types.Thread, req types.JoinRequest) types.Thread {
	out := thread.Clone()
	out.PendingRequests = append(out.PendingRequests, req)
	return out
}

// Capacity is the thread's member limit, falling back to the fixed client
// capacity for records that carry none.
func Capacity(thread types.Thread) int {
	if thread.MaxMembers > 0 {
		return thread.MaxMembers
	}
	return types.MaxMembers
}

// IsFull reports whether the thread has reached its member capacity.
func IsFull(thread types.Thread) bool {
	return len(thread.Members) >= Capacity(thread)
}

// WithoutPendingRequest returns a copy of thread without userID's requests.
func WithoutPendingRequest(thread types.Thread, userID string) types.Thread {
	out := thread.Clone()
	reqs := out.PendingRequests[:0]
	for _, r := range out.PendingRequests {
		if r.UserID != userID {
			reqs = append(reqs, r)
		}
	}
	out.PendingRequests = reqs
	return out
}
