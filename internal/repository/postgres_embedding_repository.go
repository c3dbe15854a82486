package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tripstack/attractions-api/internal/domain"
)

// PostgresEmbeddingRepository implements EmbeddingRepository using
// PostgreSQL with the pgvector extension
type PostgresEmbeddingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEmbeddingRepository creates a new PostgresEmbeddingRepository
func NewPostgresEmbeddingRepository(pool *pgxpool.Pool) *PostgresEmbeddingRepository {
	return &PostgresEmbeddingRepository{pool: pool}
}

// InsertBatch writes all embeddings in one transaction so an
// attraction never ends up with a partial vector set.
func (r *PostgresEmbeddingRepository) InsertBatch(ctx context.Context, embeddings []domain.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range embeddings {
		batch.Queue(`
			INSERT INTO embeddings (attraction_id, "order", start_ind, end_ind, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, e.AttractionID, e.Kind, e.StartInd, e.EndInd, e.Vector)
	}

	results := tx.SendBatch(ctx, batch)
	for range embeddings {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteByAttraction removes every embedding row for an attraction
func (r *PostgresEmbeddingRepository) DeleteByAttraction(ctx context.Context, attractionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM embeddings WHERE attraction_id = $1`, attractionID)
	return err
}

// ListByAttraction returns embeddings for one attraction ordered by
// kind then offset
func (r *PostgresEmbeddingRepository) ListByAttraction(ctx context.Context, attractionID int64) ([]domain.Embedding, error) {
	query := `
		SELECT id, attraction_id, "order", start_ind, end_ind, embedding
		FROM embeddings
		WHERE attraction_id = $1
		ORDER BY "order", start_ind
	`
	rows, err := r.pool.Query(ctx, query, attractionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		if err := rows.Scan(&e.ID, &e.AttractionID, &e.Kind, &e.StartInd, &e.EndInd, &e.Vector); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NearestByVector runs the approximate KNN scan. The <=> operator is
// cosine distance, served by the HNSW index.
func (r *PostgresEmbeddingRepository) NearestByVector(ctx context.Context, query pgvector.Vector, limit int) ([]Candidate, error) {
	sql := `
		SELECT attraction_id, "order", start_ind, end_ind, embedding
		FROM embeddings
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.AttractionID, &c.Kind, &c.StartInd, &c.EndInd, &c.Vector); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Deduplicate prunes duplicate vector rows for the same source span
func (r *PostgresEmbeddingRepository) Deduplicate(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM embeddings WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY attraction_id, "order", start_ind, end_ind
					ORDER BY id DESC
				) AS rn
				FROM embeddings
			) ranked WHERE rn > 1
		)
	`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
