package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adamavenir/huddle/internal/types"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/", "tok-1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, rec
}

func TestNormalizeBaseURL(t *testing.T) {
	if got, err := NormalizeBaseURL(" http://localhost:5050/ "); err != nil || got != "http://localhost:5050" {
		t.Fatalf("unexpected %q (%v)", got, err)
	}
	for _, bad := range []string{"", "localhost:5050", "://nope"} {
		if _, err := NormalizeBaseURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestListThreadsNormalizes(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{
		"success": true,
		"threads": [
			{"id": "t1", "title": "Lunch", "creatorId": "u1", "creator": "ana", "members": ["u1"], "requiresApproval": false},
			{"id": "t2", "title": "Run", "creatorId": "u2", "creator": "bo"}
		]
	}`)

	threads, err := client.ListThreads(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.method != http.MethodGet || rec.path != "/api/threads" || rec.query != "userId=u1" {
		t.Fatalf("unexpected request %s %s?%s", rec.method, rec.path, rec.query)
	}
	if rec.auth != "Bearer tok-1" {
		t.Fatalf("expected bearer token, got %q", rec.auth)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}
	if threads[0].CreatedBy != "u1" || threads[0].RequiresApproval {
		t.Fatalf("unexpected first thread %+v", threads[0])
	}
	if !threads[1].RequiresApproval || threads[1].Members == nil {
		t.Fatalf("expected defaults on second thread %+v", threads[1])
	}
}

func TestUnauthorizedWrapsSentinel(t *testing.T) {
	client, _ := newTestServer(t, http.StatusUnauthorized, `{"success": false, "message": "Invalid token"}`)

	_, err := client.ListThreads(context.Background(), "u1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid token" {
		t.Fatalf("expected APIError with message, got %v", err)
	}
	if MessageOf(err) != "Invalid token" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
}

func TestSuccessFalseIsError(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"success": false, "message": "Thread is full"}`)

	_, err := client.RequestJoin(context.Background(), "t1", "u2")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Thread is full" {
		t.Fatalf("expected APIError, got %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("200 must not be unauthorized")
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadGateway, "upstream down\n")

	err := client.HandleRequest(context.Background(), "t1", "u2", true, "u1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRequestJoin(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success": true, "message": "Joined thread"}`)

	result, err := client.RequestJoin(context.Background(), "t 1", "u2")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !result.Joined {
		t.Fatalf("expected immediate join")
	}
	if rec.method != http.MethodPost || rec.path != "/api/threads/t 1/join" || rec.body["userId"] != "u2" {
		t.Fatalf("unexpected request %s %s %v", rec.method, rec.path, rec.body)
	}
}

func TestHandleRequestPayload(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success": true}`)

	if err := client.HandleRequest(context.Background(), "t1", "u2", false, "u1"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rec.path != "/api/threads/t1/requests" {
		t.Fatalf("unexpected path %s", rec.path)
	}
	if rec.body["userId"] != "u2" || rec.body["approve"] != false || rec.body["currentUserId"] != "u1" {
		t.Fatalf("unexpected body %v", rec.body)
	}
}

func TestCreateThreadPayload(t *testing.T) {
	client, rec := newTestServer(t, http.StatusCreated, `{"success": true, "thread": {"id": "t9", "title": "Lunch", "creatorId": "u1", "creator": "ana"}}`)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	req := NewCreateThreadRequest(types.NewThreadInput{
		Title:       "Lunch",
		Description: "tacos",
		Location:    "park",
		Duration:    90 * time.Minute,
	}, types.User{ID: "u1", Username: "ana"}, now)

	thread, err := client.CreateThread(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if thread.ID != "t9" || len(thread.MemberProfiles) != 1 {
		t.Fatalf("unexpected thread %+v", thread)
	}
	if rec.body["creatorId"] != "u1" || rec.body["creator"] != "ana" || rec.body["expiresAt"] != "2025-03-01T13:30:00Z" {
		t.Fatalf("unexpected body %v", rec.body)
	}
	if tags, ok := rec.body["tags"].([]any); !ok || len(tags) != 0 {
		t.Fatalf("expected empty tags array, got %#v", rec.body["tags"])
	}
}

func TestDeleteThread(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success": true, "deletedBy": "Admin"}`)

	result, err := client.DeleteThread(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if result.DeletedBy != "Admin" {
		t.Fatalf("unexpected result %+v", result)
	}
	if rec.method != http.MethodDelete || rec.body["userId"] != "u1" {
		t.Fatalf("unexpected request %s %v", rec.method, rec.body)
	}
}

func TestUpdateThreadAndSendMessage(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success": true, "data": {"id": "m1", "username": "ana", "userId": "u1", "message": "hi", "timestamp": 1700000000000}}`)

	msg, err := client.SendMessage(context.Background(), "t1", SendMessageRequest{User: "ana", UserID: "u1", Message: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != "m1" || msg.Timestamp != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if rec.path != "/api/threads/t1/messages" || rec.body["user"] != "ana" {
		t.Fatalf("unexpected request %s %v", rec.path, rec.body)
	}

	if _, err := client.UpdateThread(context.Background(), "t1", map[string]any{"title": "New"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.method != http.MethodPut || rec.body["title"] != "New" {
		t.Fatalf("unexpected update %s %v", rec.method, rec.body)
	}
}

func TestAdminDashboard(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success": true, "data": {"totalThreads": 2, "totalUsers": 5, "activeUsers": 3, "threads": [{"id": "t1"}]}}`)

	stats, err := client.AdminDashboard(context.Background(), "admin")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if rec.path != "/api/admin/dashboard" || rec.query != "userId=admin" {
		t.Fatalf("unexpected request %s?%s", rec.path, rec.query)
	}
	if stats.TotalThreads != 2 || stats.TotalUsers != 5 || stats.ActiveUsers != 3 || len(stats.Threads) != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLoginStoresToken(t *testing.T) {
	client, rec := newTestServer(t, http.StatusOK, `{"success": true, "token": "tok-2", "user": {"id": "u1", "username": "ana", "isAdmin": true}}`)

	result, err := client.Login(context.Background(), "ana", "pw", true)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.User.IsAdmin || client.Token() != "tok-2" {
		t.Fatalf("unexpected result %+v token=%q", result, client.Token())
	}
	if rec.path != "/api/auth/login" || rec.body["isAdmin"] != true {
		t.Fatalf("unexpected request %s %v", rec.path, rec.body)
	}
}

func TestRegisterRequiresUser(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"success": true}`)
	if _, err := client.Register(context.Background(), "ana", "pw"); err == nil {
		t.Fatalf("expected error without user")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"exp":    exp.Unix(),
	}).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := TokenExpiry(signed)
	if err != nil {
		t.Fatalf("expiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expected %s, got %s", exp, got)
	}
	if TokenExpired(signed, exp.Add(-time.Minute)) || !TokenExpired(signed, exp) {
		t.Fatalf("unexpected expiry evaluation")
	}

	if _, err := TokenExpiry("not-a-token"); err == nil {
		t.Fatalf("expected parse error")
	}
	if TokenExpired("not-a-token", time.Now()) {
		t.Fatalf("opaque tokens are left to the server")
	}
}
