package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/repository"
)

func newTestPlanner(gen *mockGenerator, candidates []repository.Candidate) (PlannerService, *mockAttractionRepository) {
	search, _, attrRepo := newTestSearchService(candidates)
	planner := NewPlannerService(gen, search, attrRepo, zap.NewNop())
	return planner, attrRepo
}

func TestParseGeneratedQueries(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     []string
	}{
		{
			"both queries",
			"QUERY1: art museum gallery\nQUERY2: park nature walking",
			[]string{"art museum gallery", "park nature walking"},
		},
		{
			"lowercase labels",
			"query1: rooftop bars\nquery2: live music venues",
			[]string{"rooftop bars", "live music venues"},
		},
		{
			"surrounding chatter dropped",
			"Sure! Here you go:\nQUERY1: pizza restaurants\nHope that helps!",
			[]string{"pizza restaurants"},
		},
		{
			"nothing parseable",
			"I cannot help with that.",
			nil,
		},
		{
			"empty values dropped",
			"QUERY1:\nQUERY2: harbor views",
			[]string{"harbor views"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseGeneratedQueries(tc.response)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("query %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestPlannerService_ExpandQueryFallsBack(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		planner, _ := newTestPlanner(&mockGenerator{generateErr: errors.New("quota")}, nil)
		got := planner.ExpandQuery(context.Background(), "museums and food")
		if len(got) != 1 || got[0] != "museums and food" {
			t.Errorf("ExpandQuery() = %v, want original query", got)
		}
	})

	t.Run("unparseable response", func(t *testing.T) {
		planner, _ := newTestPlanner(&mockGenerator{generateResp: "no labels here"}, nil)
		got := planner.ExpandQuery(context.Background(), "museums and food")
		if len(got) != 1 || got[0] != "museums and food" {
			t.Errorf("ExpandQuery() = %v, want original query", got)
		}
	})
}

func TestPlannerService_SearchContext(t *testing.T) {
	gen := &mockGenerator{generateResp: "QUERY1: art museums\nQUERY2: city parks"}
	candidates := []repository.Candidate{
		{AttractionID: 1, Kind: 1, Vector: vectorWithCosine(0.9)},
		{AttractionID: 2, Kind: 1, Vector: vectorWithCosine(0.8)},
	}
	planner, attrRepo := newTestPlanner(gen, candidates)
	attrRepo.attractions[1] = attraction(1, "The Met")
	attrRepo.attractions[2] = attraction(2, "Central Park")

	out, err := planner.SearchContext(context.Background(), "art and nature")
	if err != nil {
		t.Fatalf("SearchContext() error = %v", err)
	}
	if !strings.Contains(out, "The Met") || !strings.Contains(out, "Central Park") {
		t.Errorf("context missing attractions: %s", out)
	}
	if !strings.Contains(out, "Found 2 attractions") {
		t.Errorf("context missing header: %s", out)
	}
}

func TestPlannerService_SearchContextNoMatches(t *testing.T) {
	gen := &mockGenerator{generateResp: "QUERY1: something\nQUERY2: else"}
	planner, _ := newTestPlanner(gen, nil)

	out, err := planner.SearchContext(context.Background(), "anything")
	if err != nil {
		t.Fatalf("SearchContext() error = %v", err)
	}
	if out != noResultsMessage {
		t.Errorf("SearchContext() = %q, want no-results message", out)
	}
}

func collectEvents(t *testing.T, planner PlannerService, query string) []Event {
	t.Helper()
	var events []Event
	err := planner.Plan(context.Background(), query, func(e Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	return events
}

func TestPlannerService_PlanHappyPath(t *testing.T) {
	gen := &mockGenerator{
		generateResp: "QUERY1: art museums\nQUERY2: city parks",
		streamTokens: []string{"## Day 1\n", "Visit the Met."},
	}
	candidates := []repository.Candidate{
		{AttractionID: 1, Kind: 1, Vector: vectorWithCosine(0.9)},
	}
	planner, attrRepo := newTestPlanner(gen, candidates)
	attrRepo.attractions[1] = attraction(1, "The Met")

	events := collectEvents(t, planner, "art for a day")

	var tokens, statuses int
	for _, e := range events {
		switch e.Type {
		case EventToken:
			tokens++
		case EventStatus:
			statuses++
		}
	}
	if statuses != 3 {
		t.Errorf("status events = %d, want 3", statuses)
	}
	if tokens != 2 {
		t.Errorf("token events = %d, want 2", tokens)
	}
	last := events[len(events)-1]
	if last.Type != EventComplete || !last.Done {
		t.Errorf("last event = %+v, want terminal complete", last)
	}
}

func TestPlannerService_PlanSearchFailure(t *testing.T) {
	gen := &mockGenerator{generateResp: "QUERY1: whatever"}
	search, embRepo, attrRepo := newTestSearchService(nil)
	embRepo.nearestErr = errors.New("index offline")
	planner := NewPlannerService(gen, search, attrRepo, zap.NewNop())

	var events []Event
	err := planner.Plan(context.Background(), "anything", func(e Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	last := events[len(events)-1]
	if last.Type != EventError || !last.Done {
		t.Fatalf("last event = %+v, want terminal error", last)
	}
	if !strings.Contains(last.Message, "Search failed") {
		t.Errorf("error message = %q", last.Message)
	}
}

func TestPlannerService_PlanGenerationFailureInline(t *testing.T) {
	gen := &mockGenerator{
		generateResp: "QUERY1: parks",
		streamTokens: []string{"Here is "},
		streamErr:    errors.New("model overloaded"),
	}
	candidates := []repository.Candidate{
		{AttractionID: 1, Kind: 1, Vector: vectorWithCosine(0.9)},
	}
	planner, attrRepo := newTestPlanner(gen, candidates)
	attrRepo.attractions[1] = attraction(1, "Bryant Park")

	events := collectEvents(t, planner, "parks please")

	last := events[len(events)-1]
	if last.Type != EventComplete {
		t.Fatalf("last event = %+v, want complete despite generation failure", last)
	}

	var sawInlineError bool
	for _, e := range events {
		if e.Type == EventToken && strings.Contains(e.Content, "error generating your itinerary") {
			sawInlineError = true
		}
	}
	if !sawInlineError {
		t.Error("expected inline error token for mid-stream failure")
	}
}

func TestPlannerService_PlanStopsWhenEmitFails(t *testing.T) {
	gen := &mockGenerator{
		generateResp: "QUERY1: parks",
		streamTokens: []string{"a", "b", "c"},
	}
	candidates := []repository.Candidate{
		{AttractionID: 1, Kind: 1, Vector: vectorWithCosine(0.9)},
	}
	planner, attrRepo := newTestPlanner(gen, candidates)
	attrRepo.attractions[1] = attraction(1, "Bryant Park")

	clientGone := errors.New("client disconnected")
	count := 0
	err := planner.Plan(context.Background(), "parks", func(e Event) error {
		count++
		if count > 4 {
			return clientGone
		}
		return nil
	})
	if !errors.Is(err, clientGone) {
		t.Errorf("Plan() error = %v, want client disconnect", err)
	}
}
