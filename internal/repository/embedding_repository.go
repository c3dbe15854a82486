package repository

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/tripstack/attractions-api/internal/domain"
)

// Candidate is one approximate-nearest-neighbor hit, vector included
// so callers can re-rank with exact similarity.
type Candidate struct {
	AttractionID int64
	Kind         int
	StartInd     int
	EndInd       int
	Vector       pgvector.Vector
}

// EmbeddingRepository defines data access for embedding vectors
type EmbeddingRepository interface {
	InsertBatch(ctx context.Context, embeddings []domain.Embedding) error
	DeleteByAttraction(ctx context.Context, attractionID int64) error
	ListByAttraction(ctx context.Context, attractionID int64) ([]domain.Embedding, error)

	// NearestByVector returns up to limit candidates ordered by
	// approximate cosine distance to the query vector.
	NearestByVector(ctx context.Context, query pgvector.Vector, limit int) ([]Candidate, error)

	// Deduplicate removes duplicate vectors keyed by
	// (attraction_id, order, start_ind, end_ind), keeping the highest
	// id. Returns the number of rows removed.
	Deduplicate(ctx context.Context) (int64, error)
}
