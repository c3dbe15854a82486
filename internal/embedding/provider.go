// Package embedding turns text into fixed-dimension float vectors via
// Amazon Bedrock's Titan Text Embeddings model.
package embedding

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable wraps any upstream failure while computing an
	// embedding. Callers decide whether the failure is fatal for the
	// record being ingested.
	ErrUnavailable = errors.New("embedding unavailable")

	// ErrEmptyResponse means the model answered but carried no vector.
	ErrEmptyResponse = errors.New("embedding missing from model response")
)

// Provider computes a single embedding vector for a piece of text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
