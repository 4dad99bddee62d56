package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// OfficerLoginRequest payload.
type OfficerLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateOfficerRequest payload for POST /admin/officers.
type CreateOfficerRequest struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone,omitempty"`
	Password     string      `json:"password"`
	Role         domain.Role `json:"role"`
	WardID       int         `json:"ward_id,omitempty"`
	ZoneID       int         `json:"zone_id,omitempty"`
	DepartmentID string      `json:"department_id,omitempty"`
}

// OfficerResponse describes an officer account.
type OfficerResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	WardID       int         `json:"ward_id,omitempty"`
	ZoneID       int         `json:"zone_id,omitempty"`
	DepartmentID string      `json:"department_id,omitempty"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
}
