package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/chunk"
	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/embedding"
	"github.com/tripstack/attractions-api/internal/places"
	"github.com/tripstack/attractions-api/internal/repository"
	"github.com/tripstack/attractions-api/pkg/telemetry"
)

const maxReviewEmbeddings = 15

// IngestService pulls places from the upstream API, persists them as
// attractions, and builds their embedding rows
type IngestService interface {
	// CollectByQuery ingests every place matching a text query. Places
	// already stored (same place id) are skipped. Failures on a single
	// place never abort the batch.
	CollectByQuery(ctx context.Context, query string, skipEmbeddings bool) ([]*domain.Attraction, error)

	// CollectNearby ingests tourist attractions around a point.
	CollectNearby(ctx context.Context, lat, lng float64, radiusM int, skipEmbeddings bool) ([]*domain.Attraction, error)

	// EmbedAttraction rebuilds the embedding rows for one attraction.
	EmbedAttraction(ctx context.Context, attraction *domain.Attraction, place *places.Place) error

	// Dedupe prunes duplicate attractions and embedding rows. Returns
	// counts of removed attractions and embeddings.
	Dedupe(ctx context.Context) (int64, int64, error)
}

type ingestService struct {
	finder      places.Finder
	attractions repository.AttractionRepository
	embeddings  repository.EmbeddingRepository
	provider    embedding.Provider
	chunker     *chunk.Chunker
	logger      *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	finder places.Finder,
	attractions repository.AttractionRepository,
	embeddings repository.EmbeddingRepository,
	provider embedding.Provider,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		finder:      finder,
		attractions: attractions,
		embeddings:  embeddings,
		provider:    provider,
		chunker:     chunk.New(),
		logger:      logger,
	}
}

func (s *ingestService) CollectByQuery(ctx context.Context, query string, skipEmbeddings bool) ([]*domain.Attraction, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.CollectByQuery")
	defer span.End()

	hits, err := s.finder.SearchText(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.ingestAll(ctx, hits, skipEmbeddings), nil
}

func (s *ingestService) CollectNearby(ctx context.Context, lat, lng float64, radiusM int, skipEmbeddings bool) ([]*domain.Attraction, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.CollectNearby")
	defer span.End()

	hits, err := s.finder.Nearby(ctx, lat, lng, radiusM, "tourist_attraction")
	if err != nil {
		return nil, err
	}
	return s.ingestAll(ctx, hits, skipEmbeddings), nil
}

func (s *ingestService) ingestAll(ctx context.Context, hits []places.Place, skipEmbeddings bool) []*domain.Attraction {
	var created []*domain.Attraction
	for i := range hits {
		place := &hits[i]
		if place.PlaceID == "" {
			s.logger.Warn("skipping place without place_id", zap.String("name", place.Name))
			continue
		}

		existing, err := s.attractions.GetByPlaceID(ctx, place.PlaceID)
		if err != nil {
			s.logger.Error("place lookup failed", zap.String("place_id", place.PlaceID), zap.Error(err))
			continue
		}
		if existing != nil {
			continue
		}

		attraction, err := s.ingestOne(ctx, place, skipEmbeddings)
		if err != nil {
			s.logger.Error("attraction ingest failed",
				zap.String("place_id", place.PlaceID),
				zap.String("name", place.Name),
				zap.Error(err))
			continue
		}
		created = append(created, attraction)
	}
	s.logger.Info("ingestion finished", zap.Int("created", len(created)))
	return created
}

func (s *ingestService) ingestOne(ctx context.Context, place *places.Place, skipEmbeddings bool) (*domain.Attraction, error) {
	attraction := attractionFromPlace(place)
	if err := s.attractions.Upsert(ctx, attraction); err != nil {
		return nil, fmt.Errorf("upsert attraction: %w", err)
	}

	if len(place.Reviews) > 0 {
		reviews := make([]domain.Review, 0, len(place.Reviews))
		for _, r := range place.Reviews {
			reviews = append(reviews, domain.Review{
				AttractionID: attraction.ID,
				AuthorName:   r.AuthorName,
				Rating:       r.Rating,
				Text:         r.Text,
				Time:         time.Unix(r.Time, 0).UTC(),
			})
		}
		if err := s.attractions.ReplaceReviews(ctx, attraction.ID, reviews); err != nil {
			s.logger.Warn("storing reviews failed", zap.Int64("attraction_id", attraction.ID), zap.Error(err))
		}
	}

	if !skipEmbeddings {
		if err := s.EmbedAttraction(ctx, attraction, place); err != nil {
			return nil, fmt.Errorf("embed attraction: %w", err)
		}
	}
	return attraction, nil
}

// EmbedAttraction builds the full embedding set for one attraction:
// description chunks, tags, top reviews, and the editorial summary.
// A failed description chunk aborts the whole set; failed tags and
// reviews are skipped; a failed summary falls back to a zero vector.
func (s *ingestService) EmbedAttraction(ctx context.Context, attraction *domain.Attraction, place *places.Place) error {
	ctx, span := telemetry.StartSpan(ctx, "ingest.EmbedAttraction")
	defer span.End()

	var records []domain.Embedding

	if attraction.Description != "" {
		for _, ch := range s.chunker.Chunk(attraction.Description) {
			vec, err := s.provider.Embed(ctx, ch.Text)
			if err != nil {
				return fmt.Errorf("description chunk [%d:%d]: %w", ch.Start, ch.End, err)
			}
			records = append(records, domain.Embedding{
				AttractionID: attraction.ID,
				Kind:         domain.EmbeddingKindDescription,
				StartInd:     ch.Start,
				EndInd:       ch.End,
				Vector:       pgvector.NewVector(vec),
			})
		}
	}

	for _, tag := range attraction.Types {
		if tag == "" {
			continue
		}
		vec, err := s.provider.Embed(ctx, tag)
		if err != nil {
			s.logger.Warn("tag embedding failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		records = append(records, domain.Embedding{
			AttractionID: attraction.ID,
			Kind:         domain.EmbeddingKindTag,
			StartInd:     -1,
			EndInd:       -1,
			Vector:       pgvector.NewVector(vec),
		})
	}

	if place != nil {
		records = append(records, s.reviewEmbeddings(ctx, attraction.ID, place.Reviews)...)

		if summary := place.EditorialSummary; summary != "" {
			vec, err := s.provider.Embed(ctx, summary)
			if err != nil {
				s.logger.Warn("summary embedding failed, storing zero vector",
					zap.Int64("attraction_id", attraction.ID), zap.Error(err))
				vec = make([]float32, s.provider.Dimensions())
			}
			records = append(records, domain.Embedding{
				AttractionID: attraction.ID,
				Kind:         domain.EmbeddingKindSummary,
				StartInd:     0,
				EndInd:       len(summary),
				Vector:       pgvector.NewVector(vec),
			})
		}
	}

	if err := s.embeddings.InsertBatch(ctx, records); err != nil {
		return fmt.Errorf("insert embeddings: %w", err)
	}
	s.logger.Info("embeddings created",
		zap.Int64("attraction_id", attraction.ID),
		zap.Int("count", len(records)))
	return nil
}

// reviewEmbeddings embeds the top reviews ranked by rating then
// recency. Offsets carry the review's rank within the selection.
func (s *ingestService) reviewEmbeddings(ctx context.Context, attractionID int64, reviews []places.Review) []domain.Embedding {
	if len(reviews) == 0 {
		return nil
	}

	ranked := make([]places.Review, len(reviews))
	copy(ranked, reviews)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rating != ranked[j].Rating {
			return ranked[i].Rating > ranked[j].Rating
		}
		return ranked[i].Time > ranked[j].Time
	})
	if len(ranked) > maxReviewEmbeddings {
		ranked = ranked[:maxReviewEmbeddings]
	}

	var records []domain.Embedding
	for i, review := range ranked {
		if review.Text == "" {
			continue
		}
		text := fmt.Sprintf("Rating %g: %s", review.Rating, review.Text)
		vec, err := s.provider.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("review embedding failed",
				zap.Int64("attraction_id", attractionID),
				zap.Int("review_index", i),
				zap.Error(err))
			continue
		}
		records = append(records, domain.Embedding{
			AttractionID: attractionID,
			Kind:         domain.EmbeddingKindReview,
			StartInd:     i,
			EndInd:       i,
			Vector:       pgvector.NewVector(vec),
		})
	}
	return records
}

func (s *ingestService) Dedupe(ctx context.Context) (int64, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.Dedupe")
	defer span.End()

	attractionsRemoved, err := s.attractions.Deduplicate(ctx)
	if err != nil {
		return 0, 0, err
	}
	embeddingsRemoved, err := s.embeddings.Deduplicate(ctx)
	if err != nil {
		return attractionsRemoved, 0, err
	}

	s.logger.Info("deduplication finished",
		zap.Int64("attractions_removed", attractionsRemoved),
		zap.Int64("embeddings_removed", embeddingsRemoved))
	return attractionsRemoved, embeddingsRemoved, nil
}

func attractionFromPlace(p *places.Place) *domain.Attraction {
	a := &domain.Attraction{
		Name:         p.Name,
		Types:        p.Types,
		OpeningHours: p.OpeningHours,
	}
	// Prefer the editorial overview as the searchable description,
	// falling back to the address same as rows ingested before
	// editorial summaries were requested.
	if p.EditorialSummary != "" {
		a.Description = p.EditorialSummary
	} else {
		a.Description = p.FormattedAddress
	}

	setIfNotEmpty := func(dst **string, v string) {
		if v != "" {
			s := v
			*dst = &s
		}
	}
	setIfNotEmpty(&a.PlaceID, p.PlaceID)
	setIfNotEmpty(&a.FormattedAddress, p.FormattedAddress)
	setIfNotEmpty(&a.Vicinity, p.Vicinity)
	setIfNotEmpty(&a.PrimaryType, p.PrimaryType)
	setIfNotEmpty(&a.Website, p.Website)
	setIfNotEmpty(&a.PhoneNumber, p.Phone)
	setIfNotEmpty(&a.InternationalPhone, p.InternationalPhone)
	setIfNotEmpty(&a.BusinessStatus, p.BusinessStatus)
	setIfNotEmpty(&a.PlusCode, p.PlusCode)
	setIfNotEmpty(&a.EditorialSummary, p.EditorialSummary)

	a.Latitude = p.Latitude
	a.Longitude = p.Longitude
	a.Rating = p.Rating
	a.UserRatingsTotal = p.UserRatingsTotal
	a.PriceLevel = p.PriceLevel

	if len(p.Photos) > 0 {
		if data, err := json.Marshal(p.Photos); err == nil {
			a.Photos = data
		}
	}
	return a
}
