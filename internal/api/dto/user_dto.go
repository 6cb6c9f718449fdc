package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RegisterRequest payload for self-registration.
type RegisterRequest struct {
	Login     string  `json:"login" validate:"required,min=3,max=64"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Name      string  `json:"name" validate:"max=120"`
	Phone     string  `json:"phone" validate:"max=32"`
	Location  string  `json:"location" validate:"max=120"`
	CompanyID *string `json:"companyId,omitempty"`
}

// CreateUserRequest is the admin variant of registration.
type CreateUserRequest struct {
	RegisterRequest
	Role string `json:"role" validate:"omitempty,oneof=customer admin support_engineer"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	UID       string      `json:"uid"`
	Role      domain.Role `json:"role"`
}

// UpdateProfileRequest payload. Omitted fields are left untouched.
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Location  *string `json:"location,omitempty" validate:"omitempty,max=120"`
	CompanyID *string `json:"companyId,omitempty"`
}

// UpdateUserRequest is the admin edit of an account.
type UpdateUserRequest struct {
	UpdateProfileRequest
	Login    *string `json:"login,omitempty" validate:"omitempty,min=3,max=64"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=customer admin support_engineer"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	UID       string      `json:"uid"`
	Login     string      `json:"login"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Location  string      `json:"location,omitempty"`
	CompanyID *string     `json:"companyId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UID:       u.UID,
		Login:     u.Login,
		Role:      u.Role,
		Name:      u.Name,
		Phone:     u.Phone,
		Location:  u.Location,
		CompanyID: u.CompanyID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
