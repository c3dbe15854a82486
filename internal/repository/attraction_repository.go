package repository

import (
	"context"

	"github.com/tripstack/attractions-api/internal/domain"
)

// AttractionRepository defines data access for attractions and their
// reviews
type AttractionRepository interface {
	Upsert(ctx context.Context, attraction *domain.Attraction) error
	GetByID(ctx context.Context, id int64) (*domain.Attraction, error)
	GetByPlaceID(ctx context.Context, placeID string) (*domain.Attraction, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Attraction, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Attraction, error)
	SearchByName(ctx context.Context, name string, limit int) ([]*domain.Attraction, error)
	Nearby(ctx context.Context, lat, lng float64, radiusM int, limit int) ([]*domain.Attraction, error)
	Delete(ctx context.Context, id int64) error

	ReplaceReviews(ctx context.Context, attractionID int64, reviews []domain.Review) error
	TopReviews(ctx context.Context, attractionID int64, limit int) ([]domain.Review, error)

	// Deduplicate removes duplicate attraction rows, keeping the most
	// recently updated (highest id on ties) per place id, and per
	// formatted address for rows without a place id. Returns the number
	// of rows removed.
	Deduplicate(ctx context.Context) (int64, error)
}
