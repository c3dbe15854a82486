package repository

import (
	"context"
	"time"

	"github.com/tripstack/attractions-api/internal/domain"
)

// UserRepository defines data access for user accounts
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateRefreshToken(ctx context.Context, id int64, refreshToken string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
