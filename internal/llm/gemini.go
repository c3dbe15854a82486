// Package llm wraps the Google Gemini generative models behind a small
// interface so services can be tested without network access.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tripstack/attractions-api/pkg/telemetry"
)

const DefaultModel = "gemini-2.0-flash"

var ErrNoContent = errors.New("model returned no content")

// Generator produces model completions, whole or streamed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, emit func(token string) error) error
}

// Gemini is the production Generator backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate returns the full completion for a prompt.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm.Generate")
	defer span.End()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

// Stream generates a completion and hands each chunk of text to emit
// as it arrives. If emit returns an error the stream stops and that
// error is returned.
func (g *Gemini) Stream(ctx context.Context, prompt string, emit func(token string) error) error {
	ctx, span := telemetry.StartSpan(ctx, "llm.Stream")
	defer span.End()

	it := g.model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			telemetry.SetSpanError(ctx, err)
			return fmt.Errorf("stream content: %w", err)
		}
		if text := responseText(resp); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
