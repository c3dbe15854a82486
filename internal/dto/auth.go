package dto

import (
	"time"

	"github.com/tripstack/attractions-api/internal/domain"
)

// SignupRequest represents request to create an account
type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LoginRequest represents request to open a session
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	SubscriptionLevel string    `json:"subscription_level"`
	DateJoined        time.Time `json:"date_joined"`
}

// AuthResponse represents response after login or signup
type AuthResponse struct {
	User UserResponse `json:"user"`
}

// UserFromDomain converts domain User to UserResponse
func UserFromDomain(u *domain.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		SubscriptionLevel: u.SubscriptionLevel,
		DateJoined:        u.DateJoined,
	}
}
