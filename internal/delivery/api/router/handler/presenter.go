// Package handler contains the HTTP handlers for the application.
package handler

import (
	"net/http"
	"time"

	"portal/internal/delivery/api/cookie"
	"portal/internal/delivery/api/response"
	"portal/internal/domain/entity"
	"portal/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserResponse is the public view of a user. The password hash never leaves the server.
type UserResponse struct {
	ID            uuid.UUID   `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Role          entity.Role `json:"role"`
	EmailVerified bool        `json:"emailVerified"`
	HasPassword   bool        `json:"hasPassword"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func newUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		EmailVerified: user.IsEmailVerified(),
		HasPassword:   user.HasPassword(),
		CreatedAt:     user.CreatedAt,
	}
}

// AuthResponse is returned by every endpoint that signs the user in.
type AuthResponse struct {
	User      *UserResponse `json:"user"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// SessionResponse describes one of the user's sessions.
type SessionResponse struct {
	ID        uuid.UUID         `json:"id"`
	Method    entity.AuthMethod `json:"method"`
	Device    entity.DeviceType `json:"device"`
	UserAgent string            `json:"userAgent,omitempty"`
	IPAddress string            `json:"ipAddress,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Current   bool              `json:"current"`
}

func newSessionResponse(session *entity.Session, currentID uuid.UUID) SessionResponse {
	return SessionResponse{
		ID:        session.ID,
		Method:    session.Method,
		Device:    session.Device,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		Current:   session.ID == currentID,
	}
}

// signedIn writes the session cookie and renders the signed-in user.
func signedIn(c echo.Context, cookies *cookie.Store, status int, result *usecase.AuthResult) error {
	if err := cookies.SetSession(c, result.Session.Token, result.Session.Session.ExpiresAt); err != nil {
		return err
	}

	return response.Success(c, status, AuthResponse{
		User:      newUserResponse(result.User),
		ExpiresAt: result.Session.Session.ExpiresAt,
	})
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
