package domain

import "time"

// Attraction is a place record sourced from the Google Places API and
// enriched with editorial content.
type Attraction struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	PlaceID              *string   `json:"place_id,omitempty"`
	FormattedAddress     *string   `json:"formatted_address,omitempty"`
	Vicinity             *string   `json:"vicinity,omitempty"`
	Latitude             *float64  `json:"latitude,omitempty"`
	Longitude            *float64  `json:"longitude,omitempty"`
	Types                []string  `json:"types,omitempty"`
	PrimaryType          *string   `json:"primary_type,omitempty"`
	Rating               *float64  `json:"rating,omitempty"`
	UserRatingsTotal     *int      `json:"user_ratings_total,omitempty"`
	PriceLevel           *int      `json:"price_level,omitempty"`
	Website              *string   `json:"website,omitempty"`
	PhoneNumber          *string   `json:"phone_number,omitempty"`
	InternationalPhone   *string   `json:"international_phone,omitempty"`
	OpeningHours         []byte    `json:"opening_hours,omitempty"`
	BusinessStatus       *string   `json:"business_status,omitempty"`
	PlusCode             *string   `json:"plus_code,omitempty"`
	EditorialSummary     *string   `json:"editorial_summary,omitempty"`
	Photos               []byte    `json:"photos,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Review is a user review attached to an attraction.
type Review struct {
	ID           int64     `json:"id"`
	AttractionID int64     `json:"attraction_id"`
	AuthorName   string    `json:"author_name"`
	Rating       float64   `json:"rating"`
	Text         string    `json:"text"`
	Time         time.Time `json:"time"`
}
