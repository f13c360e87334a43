package models

import "time"

// Session binds a gateway session id to the upstream bearer token and the signed-in user.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// SessionView is what the gateway returns about a session; the token never leaves the server.
type SessionView struct {
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// View strips the credential.
func (s *Session) View() SessionView {
	return SessionView{User: s.User, ExpiresAt: s.ExpiresAt}
}

// LoginRequest holds staff credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is the upstream reply to POST /login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
