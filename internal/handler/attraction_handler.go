package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/dto"
	"github.com/tripstack/attractions-api/internal/repository"
	"github.com/tripstack/attractions-api/internal/service"
	"github.com/tripstack/attractions-api/pkg/response"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// AttractionHandler handles attraction HTTP requests
type AttractionHandler struct {
	attractions repository.AttractionRepository
	search      service.SearchService
	ingest      service.IngestService
}

// NewAttractionHandler creates a new AttractionHandler
func NewAttractionHandler(
	attractions repository.AttractionRepository,
	search service.SearchService,
	ingest service.IngestService,
) *AttractionHandler {
	return &AttractionHandler{
		attractions: attractions,
		search:      search,
		ingest:      ingest,
	}
}

// List returns attractions with limit/offset paging
// GET /attractions
func (h *AttractionHandler) List(c *gin.Context) {
	limit := intQuery(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := intQuery(c, "offset", 0)

	rows, err := h.attractions.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.SuccessWithMeta(c, toResponses(rows), gin.H{"limit": limit, "offset": offset})
}

// Get returns one attraction
// GET /attractions/:id
func (h *AttractionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid attraction id")
		return
	}

	attraction, err := h.attractions.GetByID(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if attraction == nil {
		response.NotFound(c, "Attraction not found")
		return
	}
	response.Success(c, dto.AttractionFromDomain(attraction))
}

// Search runs semantic similarity search. Accepts the query as JSON
// body (POST) or query parameters (GET).
// GET|POST /attractions/search
func (h *AttractionHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if c.Request.Method == "GET" {
		req.Query = c.Query("query")
		req.MaxResults = intQuery(c, "max_results", 0)
		if raw := c.Query("threshold"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				req.Threshold = v
			}
		}
		if req.Query == "" {
			response.BadRequest(c, "query must not be empty")
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	results, err := h.search.SearchAttractions(c.Request.Context(), req.Query, req.MaxResults, req.Threshold)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			response.BadRequest(c, "query must not be empty")
			return
		}
		response.InternalError(c, err)
		return
	}

	out := make([]*dto.AttractionResponse, 0, len(results))
	for _, r := range results {
		item := dto.AttractionFromDomain(r.Attraction)
		sim := r.Similarity
		item.Similarity = &sim
		out = append(out, item)
	}
	response.Success(c, out)
}

// Nearby returns attractions around a lat/lng point, or matching a
// free-text location name when ?location= is supplied
// GET /near_by (also mounted under /attractions)
func (h *AttractionHandler) Nearby(c *gin.Context) {
	var req dto.NearbyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Location != "" {
		rows, err := h.attractions.SearchByName(c.Request.Context(), req.Location, defaultPageSize)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.Success(c, toResponses(rows))
		return
	}

	if req.Latitude == 0 && req.Longitude == 0 {
		response.BadRequest(c, "either location or lat/lng is required")
		return
	}
	radius := req.RadiusM
	if radius <= 0 {
		radius = req.Distance
	}
	if radius <= 0 {
		radius = 5000
	}

	rows, err := h.attractions.Nearby(c.Request.Context(), req.Latitude, req.Longitude, radius, defaultPageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, toResponses(rows))
}

// Collect ingests attractions from the upstream places API
// POST /attractions/collect
func (h *AttractionHandler) Collect(c *gin.Context) {
	var req dto.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	created, err := h.ingest.CollectByQuery(c.Request.Context(), req.Query, req.SkipEmbeds)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.SuccessWithMeta(c, toResponses(created), gin.H{"created": len(created)})
}

// Dedupe prunes duplicate attractions and embeddings
// POST /attractions/dedupe
func (h *AttractionHandler) Dedupe(c *gin.Context) {
	attractionsRemoved, embeddingsRemoved, err := h.ingest.Dedupe(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{
		"attractions_removed": attractionsRemoved,
		"embeddings_removed":  embeddingsRemoved,
	})
}

func toResponses(rows []*domain.Attraction) []*dto.AttractionResponse {
	out := make([]*dto.AttractionResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, dto.AttractionFromDomain(a))
	}
	return out
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
