// Package places is a thin client for the Google Places Web Service
// endpoints used during ingestion: text search, nearby search, and
// place details.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/pkg/retry"
	"github.com/tripstack/attractions-api/pkg/telemetry"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

	detailsFields = "name,formatted_address,rating,user_ratings_total,photo,type," +
		"website,formatted_phone_number,international_phone_number,opening_hours," +
		"geometry,vicinity,place_id,price_level,business_status,plus_code,reviews," +
		"editorial_summary"
)

var ErrUpstream = errors.New("places api error")

// Photo is one attraction photo with a pre-built fetch URL.
type Photo struct {
	URL              string   `json:"url"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	PhotoReference   string   `json:"photo_reference"`
	HTMLAttributions []string `json:"html_attributions"`
}

// Review is one user review attached to a place.
type Review struct {
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
	Language   string  `json:"language,omitempty"`
}

// Place is a fully-detailed place record.
type Place struct {
	PlaceID            string          `json:"place_id"`
	Name               string          `json:"name"`
	FormattedAddress   string          `json:"formatted_address"`
	Vicinity           string          `json:"vicinity"`
	Latitude           *float64        `json:"latitude"`
	Longitude          *float64        `json:"longitude"`
	Types              []string        `json:"types"`
	PrimaryType        string          `json:"primary_type"`
	Rating             *float64        `json:"rating"`
	UserRatingsTotal   *int            `json:"user_ratings_total"`
	PriceLevel         *int            `json:"price_level"`
	Website            string          `json:"website"`
	Phone              string          `json:"phone"`
	InternationalPhone string          `json:"international_phone"`
	OpeningHours       json.RawMessage `json:"opening_hours"`
	BusinessStatus     string          `json:"business_status"`
	PlusCode           string          `json:"plus_code"`
	EditorialSummary   string          `json:"editorial_summary"`
	Photos             []Photo         `json:"photos"`
	Reviews            []Review        `json:"reviews"`
}

// Finder is the surface the ingestion service depends on.
type Finder interface {
	SearchText(ctx context.Context, query string) ([]Place, error)
	Nearby(ctx context.Context, lat, lng float64, radiusM int, placeType string) ([]Place, error)
	Details(ctx context.Context, placeID string) (*Place, error)
}

// Client calls the Places Web Service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retrier    *retry.Retrier
	logger     *zap.Logger
}

func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		retrier:    retry.New(nil),
		logger:     logger,
	}
}

// SearchText runs a text search and resolves full details for every hit.
func (c *Client) SearchText(ctx context.Context, query string) ([]Place, error) {
	ctx, span := telemetry.StartSpan(ctx, "places.SearchText")
	defer span.End()

	params := url.Values{}
	params.Set("query", query)

	var listing searchResponse
	if err := c.get(ctx, "/textsearch/json", params, &listing); err != nil {
		return nil, err
	}
	return c.resolveDetails(ctx, listing.Results)
}

// Nearby runs a nearby search around a point and resolves full details.
func (c *Client) Nearby(ctx context.Context, lat, lng float64, radiusM int, placeType string) ([]Place, error) {
	ctx, span := telemetry.StartSpan(ctx, "places.Nearby")
	defer span.End()

	if radiusM <= 0 {
		radiusM = 5000
	}
	if placeType == "" {
		placeType = "tourist_attraction"
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", strconv.Itoa(radiusM))
	params.Set("type", placeType)

	var listing searchResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &listing); err != nil {
		return nil, err
	}
	return c.resolveDetails(ctx, listing.Results)
}

// Details fetches the full record for one place id.
func (c *Client) Details(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)

	var resp detailsResponse
	if err := c.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, err
	}
	place := resp.Result.toPlace(placeID, c.apiKey)
	return &place, nil
}

func (c *Client) resolveDetails(ctx context.Context, hits []searchResult) ([]Place, error) {
	places := make([]Place, 0, len(hits))
	for _, hit := range hits {
		if hit.PlaceID == "" {
			continue
		}
		place, err := c.Details(ctx, hit.PlaceID)
		if err != nil {
			// One bad place should not sink the whole listing.
			c.logger.Warn("place details failed",
				zap.String("place_id", hit.PlaceID),
				zap.Error(err))
			continue
		}
		places = append(places, *place)
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
		}

		var envelope statusEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return retry.Permanent(fmt.Errorf("%w: decode: %v", ErrUpstream, err))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("%w: decode: %v", ErrUpstream, err))
		}
		switch envelope.Status {
		case "OK", "ZERO_RESULTS":
			return nil
		case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
			return fmt.Errorf("%w: %s", ErrUpstream, envelope.Status)
		default:
			return retry.Permanent(fmt.Errorf("%w: %s: %s", ErrUpstream, envelope.Status, envelope.ErrorMessage))
		}
	})
}
