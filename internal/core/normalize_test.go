package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adamavenir/huddle/internal/types"
)

func decodeRaw(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return raw
}

func TestNormalizeThreadDefaults(t *testing.T) {
	raw := decodeRaw(t, `{"id": "t1", "title": "Lunch", "creatorId": "u1", "creator": "ana"}`)
	thread := NormalizeThread(raw)

	if thread.ID != "t1" || thread.CreatedBy != "u1" || thread.CreatedByName != "ana" {
		t.Fatalf("unexpected identity fields %+v", thread)
	}
	if thread.Tags == nil || len(thread.Tags) != 0 {
		t.Fatalf("expected empty tags, got %#v", thread.Tags)
	}
	if thread.Members == nil || len(thread.Members) != 0 {
		t.Fatalf("expected empty members, got %#v", thread.Members)
	}
	if thread.PendingRequests == nil || len(thread.PendingRequests) != 0 {
		t.Fatalf("expected empty pending requests, got %#v", thread.PendingRequests)
	}
	if thread.Chat == nil || thread.MemberProfiles == nil {
		t.Fatalf("expected empty chat and profiles")
	}
	if !thread.RequiresApproval {
		t.Fatalf("expected requiresApproval default true")
	}
	if thread.MaxMembers != types.MaxMembers {
		t.Fatalf("expected capacity %d, got %d", types.MaxMembers, thread.MaxMembers)
	}
}

func TestNormalizeThreadRequiresApproval(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"id": "t1"}`, true},
		{`{"id": "t1", "requiresApproval": false}`, false},
		{`{"id": "t1", "requiresApproval": true}`, true},
		{`{"id": "t1", "requiresApproval": "false"}`, true},
		{`{"id": "t1", "requiresApproval": 0}`, true},
		{`{"id": "t1", "requiresApproval": null}`, true},
	}
	for _, tc := range tests {
		thread := NormalizeThread(decodeRaw(t, tc.body))
		if thread.RequiresApproval != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.body, tc.want, thread.RequiresApproval)
		}
	}
}

func TestNormalizeThreadCapacityIgnoresServer(t *testing.T) {
	thread := NormalizeThread(decodeRaw(t, `{"_id": "t1", "maxMembers": 50}`))
	if thread.ID != "t1" {
		t.Fatalf("expected _id fallback, got %q", thread.ID)
	}
	if thread.MaxMembers != types.MaxMembers {
		t.Fatalf("expected fixed capacity, got %d", thread.MaxMembers)
	}
}

func TestNormalizeThreadMixedMembersAndRequests(t *testing.T) {
	raw := decodeRaw(t, `{
		"id": "t1",
		"createdBy": "u1",
		"members": ["u1", {"userId": "u2"}, "u1", 7, {"name": "nobody"}],
		"memberProfiles": [{"userId": "u1", "username": "ana"}, {"userId": "u1", "username": "ana2"}, "bad"],
		"pendingRequests": ["user-abcdef123456", {"userId": "u3", "username": "cy", "requestedAt": 1700000000000}],
		"tags": ["go", 3, ""],
		"expiresAt": "2025-03-01T13:00:00.000Z"
	}`)
	thread := NormalizeThread(raw)

	if len(thread.Members) != 3 || thread.Members[0] != "u1" || thread.Members[1] != "u2" || thread.Members[2] != "7" {
		t.Fatalf("unexpected members %v", thread.Members)
	}
	if len(thread.MemberProfiles) != 1 || thread.MemberProfiles[0].Username != "ana2" {
		t.Fatalf("unexpected profiles %+v", thread.MemberProfiles)
	}
	if len(thread.PendingRequests) != 2 {
		t.Fatalf("expected 2 requests, got %+v", thread.PendingRequests)
	}
	if got := thread.PendingRequests[0].Username; got != "User_123456" {
		t.Fatalf("expected derived name, got %q", got)
	}
	if got := thread.PendingRequests[1].RequestedAt; got != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("expected ISO request time, got %q", got)
	}
	if len(thread.Tags) != 2 || thread.Tags[1] != "3" {
		t.Fatalf("unexpected tags %v", thread.Tags)
	}
	want := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	if !thread.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, thread.ExpiresAt)
	}
}

func TestNormalizeThreadMalformedFields(t *testing.T) {
	raw := decodeRaw(t, `{"id": "t1", "tags": "go", "members": {"u1": true}, "chat": "nope", "pendingRequests": 4, "expiresAt": "soon"}`)
	thread := NormalizeThread(raw)
	if len(thread.Tags) != 0 || len(thread.Members) != 0 || len(thread.Chat) != 0 || len(thread.PendingRequests) != 0 {
		t.Fatalf("expected malformed fields defaulted, got %+v", thread)
	}
	if !thread.ExpiresAt.IsZero() {
		t.Fatalf("expected zero expiry")
	}
}

func TestNormalizeCreatedThread(t *testing.T) {
	raw := decodeRaw(t, `{"id": "t1", "creatorId": "u1", "creator": "ana", "chat": [{"id": "m1", "message": "x"}]}`)
	thread := NormalizeCreatedThread(raw)
	if len(thread.Chat) != 0 {
		t.Fatalf("expected empty chat, got %d", len(thread.Chat))
	}
	if len(thread.MemberProfiles) != 1 || thread.MemberProfiles[0] != (types.MemberProfile{UserID: "u1", Username: "ana"}) {
		t.Fatalf("expected creator profile, got %+v", thread.MemberProfiles)
	}
}

func TestMergeThreadOnlyTouchesPresentKeys(t *testing.T) {
	base := NormalizeThread(decodeRaw(t, `{"id": "t1", "title": "Old", "description": "keep", "tags": ["a"], "requiresApproval": false}`))
	merged := MergeThread(base, map[string]any{"title": "New", "creator": "bo"})

	if merged.Title != "New" || merged.CreatedByName != "bo" {
		t.Fatalf("expected merged fields, got %+v", merged)
	}
	if merged.Description != "keep" || len(merged.Tags) != 1 || merged.RequiresApproval {
		t.Fatalf("expected untouched fields preserved, got %+v", merged)
	}
	if base.Title != "Old" {
		t.Fatalf("merge mutated its input")
	}
}

func TestNormalizeMessage(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	msg := NormalizeMessage(map[string]any{
		"username":  "ana",
		"userId":    "u1",
		"message":   "hi",
		"timestamp": float64(1700000000000),
	}, now)
	if msg.ID != "temp-1740830400000" {
		t.Fatalf("expected temp id, got %q", msg.ID)
	}
	if msg.Timestamp != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("expected ISO timestamp, got %q", msg.Timestamp)
	}
	if msg.User != "ana" || msg.UserID != "u1" || msg.Message != "hi" {
		t.Fatalf("unexpected message %+v", msg)
	}

	msg = NormalizeMessage(map[string]any{"id": "m1", "timestamp": "2025-01-01T00:00:00Z", "clientId": "c1"}, now)
	if msg.ID != "m1" || msg.Timestamp != "2025-01-01T00:00:00Z" || msg.ClientID != "c1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	msg = NormalizeMessage(map[string]any{"id": "m2"}, now)
	if msg.Timestamp != "2025-03-01T12:00:00.000Z" {
		t.Fatalf("expected receipt time, got %q", msg.Timestamp)
	}
}
