package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripstack/attractions-api/internal/domain"
)

// PostgresAttractionRepository implements AttractionRepository using
// PostgreSQL
type PostgresAttractionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAttractionRepository creates a new PostgresAttractionRepository
func NewPostgresAttractionRepository(pool *pgxpool.Pool) *PostgresAttractionRepository {
	return &PostgresAttractionRepository{pool: pool}
}

const attractionColumns = `id, name, description, place_id, formatted_address, vicinity,
	latitude, longitude, types, primary_type, rating, user_ratings_total, price_level,
	website, phone_number, international_phone, opening_hours, business_status,
	plus_code, editorial_summary, photos, created_at, last_updated`

// Upsert inserts an attraction or refreshes the existing row with the
// same place id. Rows without a place id always insert.
func (r *PostgresAttractionRepository) Upsert(ctx context.Context, a *domain.Attraction) error {
	if a.PlaceID == nil {
		query := `
			INSERT INTO attractions (name, description, place_id, formatted_address, vicinity,
				latitude, longitude, types, primary_type, rating, user_ratings_total, price_level,
				website, phone_number, international_phone, opening_hours, business_status,
				plus_code, editorial_summary, photos)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			RETURNING id, created_at, last_updated
		`
		return r.pool.QueryRow(ctx, query, r.upsertArgs(a)...).
			Scan(&a.ID, &a.CreatedAt, &a.LastUpdated)
	}

	query := `
		INSERT INTO attractions (name, description, place_id, formatted_address, vicinity,
			latitude, longitude, types, primary_type, rating, user_ratings_total, price_level,
			website, phone_number, international_phone, opening_hours, business_status,
			plus_code, editorial_summary, photos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (place_id) WHERE place_id IS NOT NULL DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			formatted_address = EXCLUDED.formatted_address,
			vicinity = EXCLUDED.vicinity,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			types = EXCLUDED.types,
			primary_type = EXCLUDED.primary_type,
			rating = EXCLUDED.rating,
			user_ratings_total = EXCLUDED.user_ratings_total,
			price_level = EXCLUDED.price_level,
			website = EXCLUDED.website,
			phone_number = EXCLUDED.phone_number,
			international_phone = EXCLUDED.international_phone,
			opening_hours = EXCLUDED.opening_hours,
			business_status = EXCLUDED.business_status,
			plus_code = EXCLUDED.plus_code,
			editorial_summary = EXCLUDED.editorial_summary,
			photos = EXCLUDED.photos,
			last_updated = now()
		RETURNING id, created_at, last_updated
	`
	return r.pool.QueryRow(ctx, query, r.upsertArgs(a)...).
		Scan(&a.ID, &a.CreatedAt, &a.LastUpdated)
}

func (r *PostgresAttractionRepository) upsertArgs(a *domain.Attraction) []interface{} {
	return []interface{}{
		a.Name, a.Description, a.PlaceID, a.FormattedAddress, a.Vicinity,
		a.Latitude, a.Longitude, a.Types, a.PrimaryType, a.Rating,
		a.UserRatingsTotal, a.PriceLevel, a.Website, a.PhoneNumber,
		a.InternationalPhone, a.OpeningHours, a.BusinessStatus,
		a.PlusCode, a.EditorialSummary, a.Photos,
	}
}

// GetByID retrieves an attraction by ID
func (r *PostgresAttractionRepository) GetByID(ctx context.Context, id int64) (*domain.Attraction, error) {
	query := `SELECT ` + attractionColumns + ` FROM attractions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByPlaceID retrieves an attraction by its place id
func (r *PostgresAttractionRepository) GetByPlaceID(ctx context.Context, placeID string) (*domain.Attraction, error) {
	query := `SELECT ` + attractionColumns + ` FROM attractions WHERE place_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, placeID))
}

// List returns attractions ordered by id with limit/offset paging
func (r *PostgresAttractionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Attraction, error) {
	query := `SELECT ` + attractionColumns + ` FROM attractions ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListByIDs returns the attractions with the given ids
func (r *PostgresAttractionRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Attraction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + attractionColumns + ` FROM attractions WHERE id = ANY($1) ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// SearchByName does a case-insensitive substring match on names
func (r *PostgresAttractionRepository) SearchByName(ctx context.Context, name string, limit int) ([]*domain.Attraction, error) {
	query := `SELECT ` + attractionColumns + ` FROM attractions WHERE name ILIKE '%' || $1 || '%' ORDER BY id LIMIT $2`
	rows, err := r.pool.Query(ctx, query, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Nearby returns attractions within radiusM meters of a point, nearest
// first. Distance uses the haversine formula over stored coordinates.
func (r *PostgresAttractionRepository) Nearby(ctx context.Context, lat, lng float64, radiusM int, limit int) ([]*domain.Attraction, error) {
	query := `
		SELECT ` + attractionColumns + `
		FROM (
			SELECT *, 6371000 * acos(least(1.0,
				cos(radians($1)) * cos(radians(latitude)) * cos(radians(longitude) - radians($2))
				+ sin(radians($1)) * sin(radians(latitude)))) AS distance_m
			FROM attractions
			WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		) nearby
		WHERE distance_m <= $3
		ORDER BY distance_m
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, query, lat, lng, radiusM, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Delete removes an attraction; embeddings and reviews cascade
func (r *PostgresAttractionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM attractions WHERE id = $1`, id)
	return err
}

// ReplaceReviews swaps the full review set for an attraction
func (r *PostgresAttractionRepository) ReplaceReviews(ctx context.Context, attractionID int64, reviews []domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM attraction_reviews WHERE attraction_id = $1`, attractionID); err != nil {
		return err
	}
	for _, rev := range reviews {
		_, err := tx.Exec(ctx, `
			INSERT INTO attraction_reviews (attraction_id, author_name, rating, text, time)
			VALUES ($1, $2, $3, $4, $5)
		`, attractionID, rev.AuthorName, rev.Rating, rev.Text, rev.Time)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// TopReviews returns the highest-rated reviews, newest first on ties
func (r *PostgresAttractionRepository) TopReviews(ctx context.Context, attractionID int64, limit int) ([]domain.Review, error) {
	query := `
		SELECT id, attraction_id, author_name, rating, text, time
		FROM attraction_reviews
		WHERE attraction_id = $1
		ORDER BY rating DESC, time DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, attractionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(&rev.ID, &rev.AttractionID, &rev.AuthorName, &rev.Rating, &rev.Text, &rev.Time); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// Deduplicate prunes duplicate rows keyed by place id, then by
// formatted address for rows without one. The most recently updated
// row wins; the highest id breaks ties. Both deletes run in one
// transaction so a partial prune never lands.
func (r *PostgresAttractionRepository) Deduplicate(ctx context.Context) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var removed int64

	byPlaceID := `
		DELETE FROM attractions WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY place_id
					ORDER BY last_updated DESC, id DESC
				) AS rn
				FROM attractions
				WHERE place_id IS NOT NULL
			) ranked WHERE rn > 1
		)
	`
	tag, err := tx.Exec(ctx, byPlaceID)
	if err != nil {
		return 0, err
	}
	removed += tag.RowsAffected()

	byAddress := `
		DELETE FROM attractions WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY formatted_address
					ORDER BY last_updated DESC, id DESC
				) AS rn
				FROM attractions
				WHERE place_id IS NULL AND formatted_address IS NOT NULL
			) ranked WHERE rn > 1
		)
	`
	tag, err = tx.Exec(ctx, byAddress)
	if err != nil {
		return 0, err
	}
	removed += tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *PostgresAttractionRepository) scanOne(row pgx.Row) (*domain.Attraction, error) {
	a := &domain.Attraction{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.PlaceID, &a.FormattedAddress, &a.Vicinity,
		&a.Latitude, &a.Longitude, &a.Types, &a.PrimaryType, &a.Rating,
		&a.UserRatingsTotal, &a.PriceLevel, &a.Website, &a.PhoneNumber,
		&a.InternationalPhone, &a.OpeningHours, &a.BusinessStatus,
		&a.PlusCode, &a.EditorialSummary, &a.Photos, &a.CreatedAt, &a.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *PostgresAttractionRepository) scanMany(rows pgx.Rows) ([]*domain.Attraction, error) {
	var out []*domain.Attraction
	for rows.Next() {
		a := &domain.Attraction{}
		err := rows.Scan(
			&a.ID, &a.Name, &a.Description, &a.PlaceID, &a.FormattedAddress, &a.Vicinity,
			&a.Latitude, &a.Longitude, &a.Types, &a.PrimaryType, &a.Rating,
			&a.UserRatingsTotal, &a.PriceLevel, &a.Website, &a.PhoneNumber,
			&a.InternationalPhone, &a.OpeningHours, &a.BusinessStatus,
			&a.PlusCode, &a.EditorialSummary, &a.Photos, &a.CreatedAt, &a.LastUpdated,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
