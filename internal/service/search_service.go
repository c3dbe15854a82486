package service

import (
	"context"
	"errors"
	"math"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/embedding"
	"github.com/tripstack/attractions-api/internal/repository"
	"github.com/tripstack/attractions-api/pkg/telemetry"
)

const (
	DefaultMaxResults = 20
	DefaultThreshold  = 0.2
)

var ErrEmptyQuery = errors.New("query must not be empty")

// SearchService runs semantic similarity search over stored embeddings
type SearchService interface {
	// Similar embeds the query, scans the vector index, and re-ranks
	// candidates by exact cosine similarity. The scan stops at the
	// first candidate below 1 - threshold since candidates arrive in
	// ascending distance order.
	Similar(ctx context.Context, query string, maxResults int, threshold float64) ([]domain.ScoredMatch, error)

	// SearchAttractions resolves Similar hits to full attraction rows,
	// tagged with each attraction's best similarity.
	SearchAttractions(ctx context.Context, query string, maxResults int, threshold float64) ([]ScoredAttraction, error)
}

// ScoredAttraction is an attraction with its best match similarity
type ScoredAttraction struct {
	Attraction *domain.Attraction
	Similarity float64
}

type searchService struct {
	embeddings  repository.EmbeddingRepository
	attractions repository.AttractionRepository
	provider    embedding.Provider
	logger      *zap.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(
	embeddings repository.EmbeddingRepository,
	attractions repository.AttractionRepository,
	provider embedding.Provider,
	logger *zap.Logger,
) SearchService {
	return &searchService{
		embeddings:  embeddings,
		attractions: attractions,
		provider:    provider,
		logger:      logger,
	}
}

func (s *searchService) Similar(ctx context.Context, query string, maxResults int, threshold float64) ([]domain.ScoredMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.Similar")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	queryVec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.embeddings.NearestByVector(ctx, pgvector.NewVector(queryVec), maxResults)
	if err != nil {
		return nil, err
	}

	cutoff := 1 - threshold
	matches := make([]domain.ScoredMatch, 0, len(candidates))
	for _, c := range candidates {
		sim := Cosine(queryVec, c.Vector.Slice())
		if sim < cutoff {
			// Candidates are ordered by distance, everything after
			// this one is farther away.
			break
		}
		matches = append(matches, domain.ScoredMatch{
			AttractionID: c.AttractionID,
			Kind:         c.Kind,
			StartInd:     c.StartInd,
			EndInd:       c.EndInd,
			Similarity:   sim,
		})
	}

	s.logger.Debug("similarity search",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)))
	return matches, nil
}

func (s *searchService) SearchAttractions(ctx context.Context, query string, maxResults int, threshold float64) ([]ScoredAttraction, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.SearchAttractions")
	defer span.End()

	matches, err := s.Similar(ctx, query, maxResults, threshold)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	best := make(map[int64]float64, len(matches))
	order := make([]int64, 0, len(matches))
	for _, m := range matches {
		if _, seen := best[m.AttractionID]; !seen {
			order = append(order, m.AttractionID)
		}
		if m.Similarity > best[m.AttractionID] {
			best[m.AttractionID] = m.Similarity
		}
	}

	rows, err := s.attractions.ListByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*domain.Attraction, len(rows))
	for _, a := range rows {
		byID[a.ID] = a
	}

	// Preserve descending similarity order from the match scan.
	out := make([]ScoredAttraction, 0, len(order))
	for _, id := range order {
		if a, ok := byID[id]; ok {
			out = append(out, ScoredAttraction{Attraction: a, Similarity: best[id]})
		}
	}
	return out, nil
}

// Cosine computes cosine similarity between two vectors. Zero vectors
// yield zero similarity.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
