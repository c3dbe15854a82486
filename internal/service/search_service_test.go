package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/repository"
)

var errFailedEmbed = errors.New("embed failed")

// vectorWithCosine builds a unit vector whose cosine similarity to
// (1,0,0) is exactly sim.
func vectorWithCosine(sim float64) pgvector.Vector {
	other := math.Sqrt(1 - sim*sim)
	return pgvector.NewVector([]float32{float32(sim), float32(other), 0})
}

func newTestSearchService(candidates []repository.Candidate) (SearchService, *mockEmbeddingRepository, *mockAttractionRepository) {
	embRepo := &mockEmbeddingRepository{candidates: candidates}
	attrRepo := newMockAttractionRepository()
	provider := &mockProvider{fallback: []float32{1, 0, 0}}
	return NewSearchService(embRepo, attrRepo, provider, zap.NewNop()), embRepo, attrRepo
}

func TestSearchService_EarlyTermination(t *testing.T) {
	// Candidates arrive in descending similarity order; with a cutoff
	// of 0.6 the scan must stop at the third one.
	candidates := []repository.Candidate{
		{AttractionID: 1, Kind: 1, Vector: vectorWithCosine(0.9)},
		{AttractionID: 2, Kind: 1, Vector: vectorWithCosine(0.8)},
		{AttractionID: 3, Kind: 1, Vector: vectorWithCosine(0.5)},
		{AttractionID: 4, Kind: 1, Vector: vectorWithCosine(0.3)},
	}
	svc, _, _ := newTestSearchService(candidates)

	matches, err := svc.Similar(context.Background(), "parks", 20, 0.4)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].AttractionID != 1 || matches[1].AttractionID != 2 {
		t.Errorf("unexpected match order: %+v", matches)
	}
	if matches[0].Similarity < 0.89 || matches[0].Similarity > 0.91 {
		t.Errorf("similarity = %f, want ~0.9", matches[0].Similarity)
	}
}

func TestSearchService_Defaults(t *testing.T) {
	svc, _, _ := newTestSearchService(nil)

	// Defaults apply when the caller passes zero values.
	matches, err := svc.Similar(context.Background(), "museums", 0, 0)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	if matches == nil {
		return // no candidates, nothing to check
	}
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc, _, _ := newTestSearchService(nil)

	_, err := svc.Similar(context.Background(), "", 10, 0.2)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Similar() error = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchService_EmbedFailurePropagates(t *testing.T) {
	embRepo := &mockEmbeddingRepository{}
	attrRepo := newMockAttractionRepository()
	provider := &mockProvider{err: errFailedEmbed}
	svc := NewSearchService(embRepo, attrRepo, provider, zap.NewNop())

	_, err := svc.Similar(context.Background(), "parks", 10, 0.2)
	if !errors.Is(err, errFailedEmbed) {
		t.Errorf("Similar() error = %v, want embed failure", err)
	}
}

func TestSearchService_SearchAttractions(t *testing.T) {
	candidates := []repository.Candidate{
		{AttractionID: 1, Kind: 1, Vector: vectorWithCosine(0.95)},
		{AttractionID: 2, Kind: -1, Vector: vectorWithCosine(0.9)},
		{AttractionID: 1, Kind: 2, Vector: vectorWithCosine(0.85)},
	}
	svc, _, attrRepo := newTestSearchService(candidates)

	attrRepo.attractions[1] = attraction(1, "Central Park")
	attrRepo.attractions[2] = attraction(2, "The Met")

	results, err := svc.SearchAttractions(context.Background(), "green spaces", 10, 0.2)
	if err != nil {
		t.Fatalf("SearchAttractions() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (deduplicated)", len(results))
	}
	if results[0].Attraction.ID != 1 {
		t.Errorf("first result = %d, want attraction 1", results[0].Attraction.ID)
	}
	if results[0].Similarity < 0.94 {
		t.Errorf("best similarity = %f, want ~0.95", results[0].Similarity)
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cosine(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("Cosine() = %f, want %f", got, tc.want)
			}
		})
	}
}
