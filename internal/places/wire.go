package places

import (
	"encoding/json"
	"fmt"
)

type statusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	PlaceID string `json:"place_id"`
}

type detailsResponse struct {
	Result detailsResult `json:"result"`
}

type detailsResult struct {
	Name                     string          `json:"name"`
	FormattedAddress         string          `json:"formatted_address"`
	Vicinity                 string          `json:"vicinity"`
	Geometry                 *geometry       `json:"geometry"`
	Types                    []string        `json:"types"`
	Rating                   *float64        `json:"rating"`
	UserRatingsTotal         *int            `json:"user_ratings_total"`
	PriceLevel               *int            `json:"price_level"`
	Website                  string          `json:"website"`
	FormattedPhoneNumber     string          `json:"formatted_phone_number"`
	InternationalPhoneNumber string          `json:"international_phone_number"`
	OpeningHours             json.RawMessage `json:"opening_hours"`
	BusinessStatus           string          `json:"business_status"`
	PlusCode                 *plusCode       `json:"plus_code"`
	EditorialSummary         *editorial      `json:"editorial_summary"`
	Photos                   []photoRef      `json:"photos"`
	Reviews                  []reviewRef     `json:"reviews"`
}

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type plusCode struct {
	GlobalCode string `json:"global_code"`
}

type editorial struct {
	Overview string `json:"overview"`
}

type photoRef struct {
	PhotoReference   string   `json:"photo_reference"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	HTMLAttributions []string `json:"html_attributions"`
}

type reviewRef struct {
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
	Language   string  `json:"language"`
}

const maxPhotos = 20

func (r detailsResult) toPlace(placeID, apiKey string) Place {
	place := Place{
		PlaceID:            placeID,
		Name:               r.Name,
		FormattedAddress:   r.FormattedAddress,
		Vicinity:           r.Vicinity,
		Types:              r.Types,
		Rating:             r.Rating,
		UserRatingsTotal:   r.UserRatingsTotal,
		PriceLevel:         r.PriceLevel,
		Website:            r.Website,
		Phone:              r.FormattedPhoneNumber,
		InternationalPhone: r.InternationalPhoneNumber,
		OpeningHours:       r.OpeningHours,
		BusinessStatus:     r.BusinessStatus,
	}
	if len(r.Types) > 0 {
		place.PrimaryType = r.Types[0]
	}
	if r.Geometry != nil {
		lat, lng := r.Geometry.Location.Lat, r.Geometry.Location.Lng
		place.Latitude, place.Longitude = &lat, &lng
	}
	if r.PlusCode != nil {
		place.PlusCode = r.PlusCode.GlobalCode
	}
	if r.EditorialSummary != nil {
		place.EditorialSummary = r.EditorialSummary.Overview
	}
	for i, p := range r.Photos {
		if i == maxPhotos {
			break
		}
		if p.PhotoReference == "" {
			continue
		}
		place.Photos = append(place.Photos, Photo{
			URL: fmt.Sprintf(
				"https://maps.googleapis.com/maps/api/place/photo?maxwidth=800&photoreference=%s&key=%s",
				p.PhotoReference, apiKey),
			Width:            p.Width,
			Height:           p.Height,
			PhotoReference:   p.PhotoReference,
			HTMLAttributions: p.HTMLAttributions,
		})
	}
	for _, rev := range r.Reviews {
		place.Reviews = append(place.Reviews, Review{
			AuthorName: rev.AuthorName,
			Rating:     rev.Rating,
			Text:       rev.Text,
			Time:       rev.Time,
			Language:   rev.Language,
		})
	}
	return place
}
