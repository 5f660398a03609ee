package services

import (
	"context"
	"fmt"
	"os"

	"github.com/pgvector/pgvector-go"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"insitegent/internal/store"
)

// OpenAIProvider implements EmbeddingProvider using the OpenAI API.
type OpenAIProvider struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dim       int
	truncated bool // true when dim is a requested truncation of the model's native size
}

// NewOpenAIProvider creates a new OpenAI embedding provider. A dimension of
// 0 uses the model's native size; the v3 models also accept a smaller
// requested dimension, which is how this provider is paired with the
// 768-dimension Gemini fallback. Without an API key the provider is built
// disabled: it still reports its dimension so the fallback chain stays
// consistent, but every call fails.
func NewOpenAIProvider(apiKey, modelID string, dimension int) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var nativeDim int
	adjustable := false
	switch modelID {
	case string(openai.AdaEmbeddingV2):
		nativeDim = 1536
	case "text-embedding-3-small":
		nativeDim = 1536
		adjustable = true
	case "text-embedding-3-large":
		nativeDim = 3072
		adjustable = true
	default:
		log.Warnf("Unknown OpenAI embedding model '%s', defaulting dimension to 1536. Accuracy may be affected.", modelID)
		nativeDim = 1536
	}

	dim := nativeDim
	truncated := false
	if dimension > 0 && dimension != nativeDim {
		if !adjustable {
			return nil, fmt.Errorf("model %s does not support a custom dimension (%d requested, native %d)",
				modelID, dimension, nativeDim)
		}
		if dimension > nativeDim {
			return nil, fmt.Errorf("requested dimension %d exceeds model %s native size %d", dimension, modelID, nativeDim)
		}
		dim = dimension
		truncated = true
	}

	provider := &OpenAIProvider{
		model:     openai.EmbeddingModel(modelID),
		dim:       dim,
		truncated: truncated,
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. OpenAI provider will be disabled.")
		return provider, nil
	}

	provider.client = openai.NewClient(apiKey)
	log.Infof("OpenAI provider initialized with model %s (dimension %d)", modelID, dim)
	return provider, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// ModelName returns the specific model identifier.
func (p *OpenAIProvider) ModelName() string { return string(p.model) }

func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	if p.client == nil {
		return pgvector.Vector{}, fmt.Errorf("OpenAI provider is not initialized (missing API key)")
	}
	if text == "" {
		log.Warn("GenerateEmbedding called with empty text for OpenAI")
		return pgvector.NewVector(make([]float32, p.dim)), nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, p.request([]string{text}))
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("OpenAI API error generating embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("OpenAI API returned no embedding data")
	}
	if len(resp.Data[0].Embedding) != p.dim {
		return pgvector.Vector{}, fmt.Errorf("OpenAI API returned unexpected embedding dimension: got %d, want %d",
			len(resp.Data[0].Embedding), p.dim)
	}

	return pgvector.NewVector(resp.Data[0].Embedding), nil
}

func (p *OpenAIProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if p.client == nil {
		return nil, fmt.Errorf("OpenAI provider is not initialized (missing API key)")
	}
	if len(texts) == 0 {
		return []pgvector.Vector{}, nil
	}

	// Empty texts get zero vectors locally; the API rejects empty input.
	validTexts := make([]string, 0, len(texts))
	originalIndices := make(map[int]int)
	for i, t := range texts {
		if t != "" {
			originalIndices[len(validTexts)] = i
			validTexts = append(validTexts, t)
		} else {
			log.Warnf("GenerateEmbeddings called with empty text at index %d for OpenAI", i)
		}
	}

	results := make([]pgvector.Vector, len(texts))
	for i := range results {
		results[i] = pgvector.NewVector(make([]float32, p.dim))
	}
	if len(validTexts) == 0 {
		return results, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, p.request(validTexts))
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error generating embeddings: %w", err)
	}
	if len(resp.Data) != len(validTexts) {
		return nil, fmt.Errorf("OpenAI API returned %d embeddings, expected %d", len(resp.Data), len(validTexts))
	}

	for i, data := range resp.Data {
		if len(data.Embedding) != p.dim {
			return nil, fmt.Errorf("OpenAI API returned unexpected embedding dimension in batch: got %d, want %d at index %d",
				len(data.Embedding), p.dim, i)
		}
		results[originalIndices[i]] = pgvector.NewVector(data.Embedding)
	}

	return results, nil
}

func (p *OpenAIProvider) request(input []string) openai.EmbeddingRequestStrings {
	req := openai.EmbeddingRequestStrings{
		Input: input,
		Model: p.model,
	}
	if p.truncated {
		req.Dimensions = p.dim
	}
	return req
}

// Dimension returns the effective embedding dimension for this provider.
func (p *OpenAIProvider) Dimension() int {
	return p.dim
}

// Status returns the operational status of the provider.
func (p *OpenAIProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

var _ store.EmbeddingService = (*OpenAIProvider)(nil)
var _ EmbeddingProvider = (*OpenAIProvider)(nil)
