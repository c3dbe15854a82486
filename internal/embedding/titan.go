package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/pkg/telemetry"
)

const (
	DefaultModelID    = "amazon.titan-embed-text-v2:0"
	DefaultDimensions = 256
)

// titanRequest is the Titan Text Embeddings V2 invocation payload.
type titanRequest struct {
	InputText      string   `json:"inputText"`
	Dimensions     int      `json:"dimensions"`
	EmbeddingTypes []string `json:"embeddingTypes"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

// BedrockInvoker is the slice of the Bedrock runtime client we use.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// TitanProvider computes embeddings through Bedrock.
type TitanProvider struct {
	client     BedrockInvoker
	modelID    string
	dimensions int
	logger     *zap.Logger
}

func NewTitanProvider(client BedrockInvoker, modelID string, dimensions int, logger *zap.Logger) *TitanProvider {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &TitanProvider{
		client:     client,
		modelID:    modelID,
		dimensions: dimensions,
		logger:     logger,
	}
}

func (p *TitanProvider) Dimensions() int {
	return p.dimensions
}

// Embed invokes the model for one piece of text.
func (p *TitanProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := telemetry.StartSpan(ctx, "embedding.Embed")
	defer span.End()

	body, err := json.Marshal(titanRequest{
		InputText:      text,
		Dimensions:     p.dimensions,
		EmbeddingTypes: []string{"float"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		p.logger.Error("bedrock invoke failed", zap.String("model_id", p.modelID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embedding, nil
}
