package dto

import (
	"encoding/json"

	"github.com/tripstack/attractions-api/internal/domain"
)

// SearchRequest represents a similarity search over attractions
type SearchRequest struct {
	Query      string  `json:"query" binding:"required"`
	MaxResults int     `json:"max_results,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// NearbyRequest represents a geographic attraction lookup. Either a
// lat/lng pair or a free-text location may be supplied; location falls
// back to a name match.
type NearbyRequest struct {
	Latitude  float64 `form:"lat"`
	Longitude float64 `form:"lng"`
	RadiusM   int     `form:"radius"`
	Location  string  `form:"location"`
	Distance  int     `form:"distance"`
}

// CollectRequest represents request to ingest attractions from the
// Places API for a text query
type CollectRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxPlaces  int    `json:"max_places,omitempty"`
	SkipEmbeds bool   `json:"skip_embeddings,omitempty"`
}

// AttractionResponse represents an attraction in API responses
type AttractionResponse struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	FormattedAddress *string         `json:"formatted_address,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Types            []string        `json:"types,omitempty"`
	Rating           *float64        `json:"rating,omitempty"`
	UserRatingsTotal *int            `json:"user_ratings_total,omitempty"`
	PriceLevel       *int            `json:"price_level,omitempty"`
	Website          *string         `json:"website,omitempty"`
	OpeningHours     json.RawMessage `json:"opening_hours,omitempty"`
	EditorialSummary *string         `json:"editorial_summary,omitempty"`
	Similarity       *float64        `json:"similarity,omitempty"`
}

// AttractionFromDomain converts domain Attraction to AttractionResponse
func AttractionFromDomain(a *domain.Attraction) *AttractionResponse {
	return &AttractionResponse{
		ID:               a.ID,
		Name:             a.Name,
		Description:      a.Description,
		FormattedAddress: a.FormattedAddress,
		Latitude:         a.Latitude,
		Longitude:        a.Longitude,
		Types:            a.Types,
		Rating:           a.Rating,
		UserRatingsTotal: a.UserRatingsTotal,
		PriceLevel:       a.PriceLevel,
		Website:          a.Website,
		OpeningHours:     json.RawMessage(a.OpeningHours),
		EditorialSummary: a.EditorialSummary,
	}
}
