package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/llm"
	"github.com/tripstack/attractions-api/pkg/telemetry"
)

const (
	fanoutThreshold   = 0.50
	fanoutMaxResults  = 10
	contextLimit      = 10
	noResultsMessage  = "No attractions found matching the query."
)

// Event is one streamed planner update
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done"`
}

const (
	EventStatus   = "status"
	EventToken    = "token"
	EventError    = "error"
	EventComplete = "complete"
)

// PlannerService turns a free-form trip request into a streamed
// itinerary: expand the query into search phrases, fan out over the
// vector index, then generate the answer from the matched attractions
type PlannerService interface {
	// ExpandQuery asks the model for exactly two KNN-friendly search
	// phrases. Any failure falls back to the original query.
	ExpandQuery(ctx context.Context, userQuery string) []string

	// SearchContext fans the expanded phrases out over the vector
	// index and formats the matched attractions for the planner prompt.
	SearchContext(ctx context.Context, userQuery string) (string, error)

	// Plan runs the full pipeline and emits events on emit. A failed
	// search aborts with a terminal error event; failures while the
	// answer is streaming surface as an inline error token instead.
	Plan(ctx context.Context, userQuery string, emit func(Event) error) error
}

type plannerService struct {
	generator   llm.Generator
	search      SearchService
	attractions attractionLister
	logger      *zap.Logger
}

type attractionLister interface {
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Attraction, error)
}

// NewPlannerService creates a new PlannerService
func NewPlannerService(generator llm.Generator, search SearchService, attractions attractionLister, logger *zap.Logger) PlannerService {
	return &plannerService{
		generator:   generator,
		search:      search,
		attractions: attractions,
		logger:      logger,
	}
}

func (s *plannerService) ExpandQuery(ctx context.Context, userQuery string) []string {
	ctx, span := telemetry.StartSpan(ctx, "planner.ExpandQuery")
	defer span.End()

	resp, err := s.generator.Generate(ctx, queryGeneratorPrompt+fmt.Sprintf("%q", userQuery))
	if err != nil {
		s.logger.Warn("query expansion failed, using original query", zap.Error(err))
		return []string{userQuery}
	}

	queries := parseGeneratedQueries(resp)
	if len(queries) == 0 {
		s.logger.Warn("query expansion parse failed, using original query")
		return []string{userQuery}
	}
	s.logger.Debug("expanded query", zap.Strings("queries", queries))
	return queries
}

func (s *plannerService) SearchContext(ctx context.Context, userQuery string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "planner.SearchContext")
	defer span.End()

	phrases := s.ExpandQuery(ctx, userQuery)

	seen := make(map[int64]struct{})
	var ids []int64
	for _, phrase := range phrases {
		matches, err := s.search.Similar(ctx, phrase, fanoutMaxResults/2+2, fanoutThreshold)
		if err != nil {
			return "", err
		}
		for _, m := range matches {
			if _, ok := seen[m.AttractionID]; ok {
				continue
			}
			seen[m.AttractionID] = struct{}{}
			ids = append(ids, m.AttractionID)
		}
	}

	if len(ids) == 0 {
		return noResultsMessage, nil
	}

	attractions, err := s.attractions.ListByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	return formatAttractions(attractions), nil
}

func (s *plannerService) Plan(ctx context.Context, userQuery string, emit func(Event) error) error {
	ctx, span := telemetry.StartSpan(ctx, "planner.Plan")
	defer span.End()

	if err := emit(Event{Type: EventStatus, Message: "Generating optimized search queries..."}); err != nil {
		return err
	}

	contextData, err := s.SearchContext(ctx, userQuery)
	if err != nil {
		s.logger.Error("planner search failed", zap.Error(err))
		return emit(Event{Type: EventError, Message: "Search failed: " + err.Error(), Done: true})
	}

	if err := emit(Event{Type: EventStatus, Message: "Found relevant attractions!"}); err != nil {
		return err
	}
	if err := emit(Event{Type: EventStatus, Message: "Creating your personalized itinerary..."}); err != nil {
		return err
	}

	prompt := buildPlannerPrompt(userQuery, contextData)

	var emitErr error
	streamErr := s.generator.Stream(ctx, prompt, func(token string) error {
		if err := emit(Event{Type: EventToken, Content: token}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil {
		return emitErr
	}
	if streamErr != nil {
		// The answer was already flowing, surface the failure inline
		// rather than abandoning the stream.
		s.logger.Error("itinerary generation failed", zap.Error(streamErr))
		msg := "Sorry, I encountered an error generating your itinerary: " + streamErr.Error()
		if err := emit(Event{Type: EventToken, Content: msg}); err != nil {
			return err
		}
	}

	return emit(Event{Type: EventComplete, Done: true})
}

// parseGeneratedQueries pulls QUERY1/QUERY2 lines out of the model
// response. Missing or unlabeled lines are dropped.
func parseGeneratedQueries(response string) []string {
	var queries []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "QUERY1:"):
			if q := strings.TrimSpace(line[len("QUERY1:"):]); q != "" {
				queries = append(queries, q)
			}
		case strings.HasPrefix(upper, "QUERY2:"):
			if q := strings.TrimSpace(line[len("QUERY2:"):]); q != "" {
				queries = append(queries, q)
			}
		}
	}
	return queries
}

func formatAttractions(attractions []*domain.Attraction) string {
	limit := len(attractions)
	if limit > contextLimit {
		limit = contextLimit
	}

	blocks := make([]string, 0, limit)
	for _, a := range attractions[:limit] {
		var b strings.Builder
		fmt.Fprintf(&b, "\n**%s**\n", a.Name)
		fmt.Fprintf(&b, "- Description: %s\n", orNA(a.Description))
		addr := ""
		if a.FormattedAddress != nil {
			addr = *a.FormattedAddress
		}
		fmt.Fprintf(&b, "- Address: %s\n", orNA(addr))
		if a.Rating != nil && a.UserRatingsTotal != nil {
			fmt.Fprintf(&b, "- Rating: %g/5 (%d reviews)\n", *a.Rating, *a.UserRatingsTotal)
		}
		if len(a.Types) > 0 {
			n := len(a.Types)
			if n > 3 {
				n = 3
			}
			fmt.Fprintf(&b, "- Type: %s\n", strings.Join(a.Types[:n], ", "))
		} else {
			b.WriteString("- Type: General attraction\n")
		}
		blocks = append(blocks, b.String())
	}

	return fmt.Sprintf("Found %d attractions:\n%s", len(attractions), strings.Join(blocks, "\n---\n"))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func buildPlannerPrompt(userQuery, attractionsData string) string {
	return fmt.Sprintf(`%s

Today's date: %s

USER'S REQUEST:
%s

AVAILABLE NYC ATTRACTIONS (from search):
%s

Please create a personalized itinerary based on the user's request.`,
		plannerSystemPrompt,
		time.Now().UTC().Format("2006-01-02"),
		userQuery,
		attractionsData)
}
