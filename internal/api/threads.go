package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/adamavenir/huddle/internal/core"
	"github.com/adamavenir/huddle/internal/types"
)

// joinedMessage is the server's reply when a join is applied immediately.
const joinedMessage = "Joined thread"

// CreateThreadRequest is the payload for creating a thread.
type CreateThreadRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Creator          string    `json:"creator"`
	CreatorID        string    `json:"creatorId"`
	Location         string    `json:"location"`
	Tags             []string  `json:"tags"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RequiresApproval bool      `json:"requiresApproval"`
}

// NewCreateThreadRequest builds a create payload from validated input.
func NewCreateThreadRequest(input types.NewThreadInput, user types.User, now time.Time) CreateThreadRequest {
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	return CreateThreadRequest{
		Title:            input.Title,
		Description:      input.Description,
		Creator:          user.Username,
		CreatorID:        user.ID,
		Location:         input.Location,
		Tags:             tags,
		ExpiresAt:        core.ExpiryFor(now, input.Duration).UTC(),
		RequiresApproval: input.RequiresApproval,
	}
}

// SendMessageRequest is the REST fallback for posting a chat message.
type SendMessageRequest struct {
	User    string `json:"user"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// JoinResult reports how the server handled a join.
type JoinResult struct {
	Joined  bool
	Message string
}

// DeleteResult reports who the server recorded as deleting a thread.
type DeleteResult struct {
	DeletedBy string
	Message   string
}

type threadsResponse struct {
	Threads []map[string]any `json:"threads"`
}

type threadResponse struct {
	Thread map[string]any `json:"thread"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sentResponse struct {
	Data map[string]any `json:"data"`
}

type deleteResponse struct {
	Message   string `json:"message"`
	DeletedBy string `json:"deletedBy"`
}

type dashboardResponse struct {
	Data struct {
		TotalThreads int              `json:"totalThreads"`
		TotalUsers   int              `json:"totalUsers"`
		ActiveUsers  int              `json:"activeUsers"`
		Threads      []map[string]any `json:"threads"`
	} `json:"data"`
}

// ListThreads fetches every thread visible to userID, normalized.
func (c *Client) ListThreads(ctx context.Context, userID string) ([]types.Thread, error) {
	var resp threadsResponse
	query := url.Values{}
	if userID != "" {
		query.Set("userId", userID)
	}
	if err := c.doJSON(ctx, http.MethodGet, "/threads", query, nil, &resp); err != nil {
		return nil, err
	}
	return normalizeAll(resp.Threads), nil
}

// CreateThread creates a thread. The returned thread is zero when the server
// does not echo it.
func (c *Client) CreateThread(ctx context.Context, req CreateThreadRequest) (types.Thread, error) {
	var resp threadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads", nil, req, &resp); err != nil {
		return types.Thread{}, err
	}
	if resp.Thread == nil {
		return types.Thread{}, nil
	}
	return core.NormalizeCreatedThread(resp.Thread), nil
}

// UpdateThread sends a partial update.
func (c *Client) UpdateThread(ctx context.Context, threadID string, fields map[string]any) (types.Thread, error) {
	var resp threadResponse
	if err := c.doJSON(ctx, http.MethodPut, "/threads/"+url.PathEscape(threadID), nil, fields, &resp); err != nil {
		return types.Thread{}, err
	}
	if resp.Thread == nil {
		return types.Thread{}, nil
	}
	return core.NormalizeThread(resp.Thread), nil
}

// DeleteThread deletes a thread as userID. The server decides whether the
// user is allowed to.
func (c *Client) DeleteThread(ctx context.Context, threadID, userID string) (DeleteResult, error) {
	var resp deleteResponse
	body := map[string]string{"userId": userID}
	if err := c.doJSON(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadID), nil, body, &resp); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedBy: resp.DeletedBy, Message: resp.Message}, nil
}

// RequestJoin asks to join a thread. Approval-exempt threads are joined
// immediately.
func (c *Client) RequestJoin(ctx context.Context, threadID, userID string) (JoinResult, error) {
	var resp messageResponse
	body := map[string]string{"userId": userID}
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/join", nil, body, &resp); err != nil {
		return JoinResult{}, err
	}
	return JoinResult{Joined: resp.Message == joinedMessage, Message: resp.Message}, nil
}

// HandleRequest approves or rejects userID's join request as currentUserID.
func (c *Client) HandleRequest(ctx context.Context, threadID, userID string, approve bool, currentUserID string) error {
	body := map[string]any{
		"userId":        userID,
		"approve":       approve,
		"currentUserId": currentUserID,
	}
	return c.doJSON(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/requests", nil, body, nil)
}

// SendMessage posts a message over REST. The realtime channel is the normal
// path; this is used when no socket is connected.
func (c *Client) SendMessage(ctx context.Context, threadID string, req SendMessageRequest) (types.ChatMessage, error) {
	var resp sentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/messages", nil, req, &resp); err != nil {
		return types.ChatMessage{}, err
	}
	if resp.Data == nil {
		return types.ChatMessage{}, nil
	}
	return core.NormalizeMessage(resp.Data, time.Now()), nil
}

// AdminDashboard fetches the admin overview.
func (c *Client) AdminDashboard(ctx context.Context, userID string) (types.DashboardStats, error) {
	var resp dashboardResponse
	query := url.Values{}
	query.Set("userId", userID)
	if err := c.doJSON(ctx, http.MethodGet, "/admin/dashboard", query, nil, &resp); err != nil {
		return types.DashboardStats{}, err
	}
	return types.DashboardStats{
		TotalThreads: resp.Data.TotalThreads,
		TotalUsers:   resp.Data.TotalUsers,
		ActiveUsers:  resp.Data.ActiveUsers,
		Threads:      normalizeAll(resp.Data.Threads),
	}, nil
}

func normalizeAll(raw []map[string]any) []types.Thread {
	threads := make([]types.Thread, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		threads = append(threads, core.NormalizeThread(r))
	}
	return threads
}
