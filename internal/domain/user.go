package domain

import "time"

// User represents a registered account. RefreshToken stores the single
// active session token; an empty value means the user is logged out.
type User struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	FirstName         *string    `json:"first_name,omitempty"`
	LastName          *string    `json:"last_name,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	IsActive          bool       `json:"is_active"`
	SubscriptionLevel string     `json:"subscription_level"`
	DateJoined        time.Time  `json:"date_joined"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	RefreshToken      string     `json:"-"`
}
