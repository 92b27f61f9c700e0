package authapi

import (
	"time"

	"servicedesk/cmd/identity"
	"servicedesk/cmd/internal/auth/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
}

type sessionView struct {
	ID                string    `json:"id"`
	DeviceName        string    `json:"device_name"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IPAddress         string    `json:"ip_address"`
	UserAgent         string    `json:"user_agent"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Current           bool      `json:"current"`
}

type loginResponse struct {
	User    userResponse `json:"user"`
	Session sessionView  `json:"session"`
	Token   string       `json:"token,omitempty"`
}

type sessionsResponse struct {
	Sessions []sessionView `json:"sessions"`
}

type revokedResponse struct {
	Revoked int `json:"revoked"`
}

type meResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}
}

func toSessionView(s session.Session, currentID string) sessionView {
	return sessionView{
		ID:                s.ID,
		DeviceName:        s.DeviceName,
		DeviceFingerprint: s.DeviceFingerprint,
		IPAddress:         s.IPAddress,
		UserAgent:         s.UserAgent,
		CreatedAt:         s.CreatedAt,
		LastActivityAt:    s.LastActivityAt,
		ExpiresAt:         s.ExpiresAt,
		Current:           s.ID == currentID,
	}
}
