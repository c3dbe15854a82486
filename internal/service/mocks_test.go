package service

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/repository"
)

// mockEmbeddingRepository is a mock implementation of EmbeddingRepository
type mockEmbeddingRepository struct {
	candidates []repository.Candidate
	inserted   []domain.Embedding
	insertErr  error
	nearestErr error
}

func (r *mockEmbeddingRepository) InsertBatch(ctx context.Context, embeddings []domain.Embedding) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, embeddings...)
	return nil
}

func (r *mockEmbeddingRepository) DeleteByAttraction(ctx context.Context, attractionID int64) error {
	return nil
}

func (r *mockEmbeddingRepository) ListByAttraction(ctx context.Context, attractionID int64) ([]domain.Embedding, error) {
	var out []domain.Embedding
	for _, e := range r.inserted {
		if e.AttractionID == attractionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *mockEmbeddingRepository) NearestByVector(ctx context.Context, query pgvector.Vector, limit int) ([]repository.Candidate, error) {
	if r.nearestErr != nil {
		return nil, r.nearestErr
	}
	if len(r.candidates) > limit {
		return r.candidates[:limit], nil
	}
	return r.candidates, nil
}

func (r *mockEmbeddingRepository) Deduplicate(ctx context.Context) (int64, error) {
	return 0, nil
}

// mockAttractionRepository is a mock implementation of AttractionRepository
type mockAttractionRepository struct {
	attractions map[int64]*domain.Attraction
	reviews     map[int64][]domain.Review
	nextID      int64
}

func newMockAttractionRepository() *mockAttractionRepository {
	return &mockAttractionRepository{
		attractions: make(map[int64]*domain.Attraction),
		reviews:     make(map[int64][]domain.Review),
		nextID:      1,
	}
}

func (r *mockAttractionRepository) Upsert(ctx context.Context, a *domain.Attraction) error {
	if a.PlaceID != nil {
		for _, existing := range r.attractions {
			if existing.PlaceID != nil && *existing.PlaceID == *a.PlaceID {
				a.ID = existing.ID
				r.attractions[a.ID] = a
				return nil
			}
		}
	}
	a.ID = r.nextID
	r.nextID++
	r.attractions[a.ID] = a
	return nil
}

func (r *mockAttractionRepository) GetByID(ctx context.Context, id int64) (*domain.Attraction, error) {
	return r.attractions[id], nil
}

func (r *mockAttractionRepository) GetByPlaceID(ctx context.Context, placeID string) (*domain.Attraction, error) {
	for _, a := range r.attractions {
		if a.PlaceID != nil && *a.PlaceID == placeID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *mockAttractionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Attraction, error) {
	var out []*domain.Attraction
	for _, a := range r.attractions {
		out = append(out, a)
	}
	return out, nil
}

func (r *mockAttractionRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Attraction, error) {
	var out []*domain.Attraction
	for _, id := range ids {
		if a, ok := r.attractions[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *mockAttractionRepository) SearchByName(ctx context.Context, name string, limit int) ([]*domain.Attraction, error) {
	var out []*domain.Attraction
	for _, a := range r.attractions {
		if strings.Contains(strings.ToLower(a.Name), strings.ToLower(name)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *mockAttractionRepository) Nearby(ctx context.Context, lat, lng float64, radiusM int, limit int) ([]*domain.Attraction, error) {
	return nil, nil
}

func (r *mockAttractionRepository) Delete(ctx context.Context, id int64) error {
	delete(r.attractions, id)
	return nil
}

func (r *mockAttractionRepository) ReplaceReviews(ctx context.Context, attractionID int64, reviews []domain.Review) error {
	r.reviews[attractionID] = reviews
	return nil
}

func (r *mockAttractionRepository) TopReviews(ctx context.Context, attractionID int64, limit int) ([]domain.Review, error) {
	revs := r.reviews[attractionID]
	if len(revs) > limit {
		revs = revs[:limit]
	}
	return revs, nil
}

func (r *mockAttractionRepository) Deduplicate(ctx context.Context) (int64, error) {
	return 0, nil
}

func attraction(id int64, name string) *domain.Attraction {
	return &domain.Attraction{ID: id, Name: name}
}

// mockProvider returns canned vectors per input text
type mockProvider struct {
	vectors map[string][]float32
	fallback []float32
	err      error
	failFor  map[string]bool
	calls    []string
}

func (p *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls = append(p.calls, text)
	if p.err != nil {
		return nil, p.err
	}
	if p.failFor != nil && p.failFor[text] {
		return nil, errFailedEmbed
	}
	if vec, ok := p.vectors[text]; ok {
		return vec, nil
	}
	if p.fallback != nil {
		return p.fallback, nil
	}
	return []float32{1, 0, 0}, nil
}

func (p *mockProvider) Dimensions() int { return 3 }

// mockGenerator returns canned completions and streams
type mockGenerator struct {
	generateResp string
	generateErr  error
	streamTokens []string
	streamErr    error
}

func (g *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.generateErr != nil {
		return "", g.generateErr
	}
	return g.generateResp, nil
}

func (g *mockGenerator) Stream(ctx context.Context, prompt string, emit func(token string) error) error {
	for _, tok := range g.streamTokens {
		if err := emit(tok); err != nil {
			return err
		}
	}
	return g.streamErr
}
