package domain

import "github.com/pgvector/pgvector-go"

// Embedding source kinds. The kind discriminates what part of an
// attraction the vector was computed from.
const (
	EmbeddingKindTag         = -1
	EmbeddingKindDescription = 1
	EmbeddingKindReview      = 2
	EmbeddingKindSummary     = 3
)

// Embedding is a single vector row tied to an attraction. For
// description chunks StartInd/EndInd are byte offsets into the
// description text; for tags both are -1; for reviews both hold the
// review's rank; for summaries they span the whole summary.
type Embedding struct {
	ID           int64           `json:"id"`
	AttractionID int64           `json:"attraction_id"`
	Kind         int             `json:"order"`
	StartInd     int             `json:"start_ind"`
	EndInd       int             `json:"end_ind"`
	Vector       pgvector.Vector `json:"-"`
}

// ScoredMatch pairs an embedding row with its exact cosine similarity
// against a query vector.
type ScoredMatch struct {
	AttractionID int64   `json:"attraction_id"`
	Kind         int     `json:"order"`
	StartInd     int     `json:"start_ind"`
	EndInd       int     `json:"end_ind"`
	Similarity   float64 `json:"similarity"`
}
