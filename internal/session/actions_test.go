package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adamavenir/huddle/internal/api"
	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

func TestDeletePromptFor(t *testing.T) {
	owned := thread("t1", ana, true)
	admin := types.User{ID: "root", Username: "root", IsAdmin: true}

	cases := []struct {
		name    string
		user    types.User
		title   string
		warning bool
	}{
		{name: "owner", user: ana, title: "Delete Your Thread"},
		{name: "admin on someone else's thread", user: admin, title: "Admin Action", warning: true},
		{name: "other user", user: bo, title: "Delete Thread"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prompt := DeletePromptFor(owned, tc.user)
			if prompt.Title != tc.title || prompt.Warning != tc.warning {
				t.Fatalf("unexpected prompt %+v", prompt)
			}
		})
	}
	if p := DeletePromptFor(owned, admin); !strings.Contains(p.Message, "created by ana") {
		t.Fatalf("admin prompt should name the creator: %q", p.Message)
	}
}

func TestDeleteThreadRequiresConfirmation(t *testing.T) {
	fapi := &fakeAPI{threads: []types.Thread{thread("t1", ana, true)}}
	h := newHarness(t, ana, fapi, nil)
	h.start(t)

	var asked DeletePrompt
	_, err := h.session.DeleteThread(context.Background(), "t1", func(p DeletePrompt) bool {
		asked = p
		return false
	})
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if asked.Title != "Delete Your Thread" {
		t.Fatalf("unexpected prompt %+v", asked)
	}
	if fapi.count("delete") != 0 {
		t.Fatalf("unconfirmed delete reached the api")
	}
}

func TestDeleteThreadClosesOpenThread(t *testing.T) {
	fapi := &fakeAPI{threads: []types.Thread{thread("t1", ana, true)}}
	h := newHarness(t, ana, fapi, nil)
	h.start(t)
	if err := h.session.Open("t1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	fapi.mu.Lock()
	fapi.threads = nil
	fapi.mu.Unlock()

	if _, err := h.session.DeleteThread(context.Background(), "t1", func(DeletePrompt) bool { return true }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st := h.session.State()
	if st.Open != nil || len(st.Threads) != 0 {
		t.Fatalf("expected thread closed and removed, got open=%v threads=%d", st.Open, len(st.Threads))
	}
	if !h.notices.has("Thread deleted successfully by Creator") {
		t.Fatalf("expected delete notice")
	}
}

func TestHandleRequestNotices(t *testing.T) {
	fapi := &fakeAPI{threads: []types.Thread{thread("t1", ana, true)}}
	h := newHarness(t, ana, fapi, nil)
	h.start(t)

	if err := h.session.HandleRequest(context.Background(), "t1", "u2", true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !h.notices.has("Request approved successfully") {
		t.Fatalf("expected approve notice")
	}

	fapi.mu.Lock()
	fapi.handleErr = &api.APIError{Status: 403, Message: "Only the creator can handle requests"}
	fapi.mu.Unlock()
	if err := h.session.HandleRequest(context.Background(), "t1", "u2", false); err == nil {
		t.Fatalf("expected error")
	}
	if !h.notices.has("Failed to handle request") {
		t.Fatalf("expected failure notice")
	}
}

func TestRequestJoinNotices(t *testing.T) {
	fapi := &fakeAPI{threads: []types.Thread{thread("t1", bo, true)}}
	h := newHarness(t, ana, fapi, nil)
	h.start(t)

	result, err := h.session.RequestJoin(context.Background(), "t1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if result.Joined {
		t.Fatalf("approval-gated thread should not join at once")
	}
	if !h.notices.has("Join request sent successfully") {
		t.Fatalf("expected request notice")
	}
}

func TestCreateThreadValidatesBeforeCalling(t *testing.T) {
	fapi := &fakeAPI{}
	h := newHarness(t, ana, fapi, nil)
	h.start(t)

	_, err := h.session.CreateThread(context.Background(), types.NewThreadInput{Title: "  ", Description: "d", Location: "l"})
	if !errors.Is(err, core.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if fapi.count("create") != 0 {
		t.Fatalf("invalid input reached the api")
	}

	_ = h.session.SetModal(true)
	_ = h.session.SetTab(types.TabAllThreads)
	created, err := h.session.CreateThread(context.Background(), types.NewThreadInput{Title: "Lunch", Description: "tacos", Location: "park"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "t-new" {
		t.Fatalf("unexpected thread %+v", created)
	}
	st := h.session.State()
	if st.ModalOpen || st.Tab != types.TabMyThreads {
		t.Fatalf("expected modal closed on my-threads, got modal=%v tab=%q", st.ModalOpen, st.Tab)
	}
	waitFor(t, "delayed refresh", func() bool { return fapi.count("list") >= 2 })
}
