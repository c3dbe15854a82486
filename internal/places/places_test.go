package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const detailsBody = `{
	"status": "OK",
	"result": {
		"name": "Central Park",
		"formatted_address": "New York, NY 10024, USA",
		"geometry": {"location": {"lat": 40.7829, "lng": -73.9654}},
		"types": ["park", "tourist_attraction"],
		"rating": 4.8,
		"user_ratings_total": 250000,
		"website": "https://www.centralparknyc.org/",
		"opening_hours": {"open_now": true},
		"business_status": "OPERATIONAL",
		"plus_code": {"global_code": "87G8Q2MP+XX"},
		"editorial_summary": {"overview": "Sprawling urban oasis in Manhattan."},
		"photos": [{"photo_reference": "ref1", "width": 800, "height": 600}],
		"reviews": [{"author_name": "A", "rating": 5, "text": "Great", "time": 1700000000}]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", srv.URL, 0, zap.NewNop()), srv
}

func TestClient_Details(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "place-1", r.URL.Query().Get("place_id"))
		w.Write([]byte(detailsBody))
	})

	place, err := client.Details(context.Background(), "place-1")
	require.NoError(t, err)

	assert.Equal(t, "place-1", place.PlaceID)
	assert.Equal(t, "Central Park", place.Name)
	require.NotNil(t, place.Latitude)
	assert.InDelta(t, 40.7829, *place.Latitude, 1e-6)
	assert.Equal(t, "park", place.PrimaryType)
	assert.Equal(t, "87G8Q2MP+XX", place.PlusCode)
	assert.Equal(t, "Sprawling urban oasis in Manhattan.", place.EditorialSummary)
	require.Len(t, place.Photos, 1)
	assert.Contains(t, place.Photos[0].URL, "photoreference=ref1")
	require.Len(t, place.Reviews, 1)
	assert.Equal(t, float64(5), place.Reviews[0].Rating)
}

func TestClient_SearchTextResolvesDetails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			w.Write([]byte(`{"status":"OK","results":[{"place_id":"p1"},{"place_id":"p2"}]}`))
		case "/details/json":
			w.Write([]byte(detailsBody))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	places, err := client.SearchText(context.Background(), "museums in manhattan")
	require.NoError(t, err)
	assert.Len(t, places, 2)
}

func TestClient_SearchTextSkipsFailedDetails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			w.Write([]byte(`{"status":"OK","results":[{"place_id":"good"},{"place_id":"bad"}]}`))
		case "/details/json":
			if r.URL.Query().Get("place_id") == "bad" {
				w.Write([]byte(`{"status":"NOT_FOUND"}`))
				return
			}
			w.Write([]byte(detailsBody))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	places, err := client.SearchText(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "good", places[0].PlaceID)
}

func TestClient_ZeroResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	places, err := client.SearchText(context.Background(), "nothing here")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"OK","results":[]}`))
	})

	_, err := client.SearchText(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestClient_DeniedIsNotRetried(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	})

	_, err := client.SearchText(context.Background(), "denied")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1, attempts)
}
