package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adamavenir/huddle/internal/types"
)

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login signs in and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string, isAdmin bool) (AuthResult, error) {
	var resp AuthResult
	req := loginRequest{Username: username, Password: password, IsAdmin: isAdmin}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return AuthResult{}, err
	}
	return c.accept(resp)
}

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, username, password string) (AuthResult, error) {
	var resp AuthResult
	req := registerRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &resp); err != nil {
		return AuthResult{}, err
	}
	return c.accept(resp)
}

func (c *Client) accept(resp AuthResult) (AuthResult, error) {
	if resp.User.ID == "" {
		return AuthResult{}, errors.New("server response did not include a user")
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return resp, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying the signature.
// The server verifies tokens; the client only uses this to skip requests
// with a session it knows is stale. A token without exp returns the zero
// time.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// TokenExpired reports whether token carries an exp claim before now.
func TokenExpired(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil || exp.IsZero() {
		return false
	}
	return !now.Before(exp)
}
