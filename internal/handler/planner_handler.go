package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/service"
	"github.com/tripstack/attractions-api/pkg/response"
)

// PlannerHandler streams itinerary generation over server-sent events
type PlannerHandler struct {
	planner service.PlannerService
	logger  *zap.Logger
}

// NewPlannerHandler creates a new PlannerHandler
func NewPlannerHandler(planner service.PlannerService, logger *zap.Logger) *PlannerHandler {
	return &PlannerHandler{planner: planner, logger: logger}
}

// Itinerary runs the trip planner pipeline and streams its events
// GET /itinerary?query=...
func (h *PlannerHandler) Itinerary(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		response.BadRequest(c, "query parameter is required")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)

	err := h.planner.Plan(c.Request.Context(), query, func(e service.Event) error {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		// Usually the client went away mid-stream.
		h.logger.Debug("itinerary stream ended early", zap.Error(err))
	}
}
