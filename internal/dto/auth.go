package dto

import (
	"time"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// LoginResponse carries the gateway session id and the signed-in staff member. Browsers use the
// cookie; CLI clients send the session id as a bearer token.
type LoginResponse struct {
	SessionID string      `json:"session_id"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// KontakStatusRequest marks a message as read or replied.
type KontakStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=baru dibaca dibalas"`
}
