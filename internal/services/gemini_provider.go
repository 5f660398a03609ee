package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"insitegent/internal/store"
)

// GeminiProvider implements EmbeddingProvider using the Google Gemini API.
// It is the optional fallback behind OpenAI; both must be configured at the
// same dimension (the Gemini embedding models are fixed at 768).
type GeminiProvider struct {
	client         *genai.Client
	embeddingModel string
	dim            int
}

// NewGeminiProvider creates a new Gemini embedding provider. Without an API
// key the provider is built disabled but still reports its dimension.
func NewGeminiProvider(apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	var dim int
	switch modelName {
	case "models/embedding-001", "models/text-embedding-004":
		dim = 768
	default:
		log.Warnf("Unknown Gemini embedding model '%s', defaulting dimension to 768. Accuracy may be affected.", modelName)
		dim = 768
	}

	provider := &GeminiProvider{
		embeddingModel: modelName,
		dim:            dim,
	}
	if apiKey == "" {
		log.Warn("Gemini API key not provided. Gemini provider will be disabled.")
		return provider, nil
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	provider.client = client

	log.Infof("Gemini provider initialized with model %s (dimension %d)", modelName, dim)
	return provider, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

// ModelName returns the specific model identifier.
func (p *GeminiProvider) ModelName() string { return p.embeddingModel }

// GenerateEmbedding generates an embedding for a single text.
func (p *GeminiProvider) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	if p.client == nil {
		return pgvector.Vector{}, fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if text == "" {
		log.Warn("GenerateEmbedding called with empty text for Gemini")
		return pgvector.NewVector(make([]float32, p.dim)), nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("Gemini API error generating embedding: %w", err)
	}

	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return pgvector.Vector{}, fmt.Errorf("Gemini API returned no embedding data")
	}
	if len(res.Embedding.Values) != p.dim {
		return pgvector.Vector{}, fmt.Errorf("Gemini API returned unexpected embedding dimension: got %d, want %d",
			len(res.Embedding.Values), p.dim)
	}

	return pgvector.NewVector(res.Embedding.Values), nil
}

// GenerateEmbeddings generates embeddings for multiple texts in one batched
// request.
func (p *GeminiProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if p.client == nil {
		return nil, fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	if len(texts) == 0 {
		return []pgvector.Vector{}, nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	results := make([]pgvector.Vector, len(texts))

	batch := em.NewBatch()
	batchIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			results[i] = pgvector.NewVector(make([]float32, p.dim))
			continue
		}
		batch.AddContent(genai.Text(text))
		batchIndices = append(batchIndices, i)
	}
	if len(batchIndices) == 0 {
		return results, nil
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error generating batch embeddings: %w", err)
	}
	if res == nil || len(res.Embeddings) != len(batchIndices) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("Gemini API returned %d embeddings, expected %d", got, len(batchIndices))
	}

	for bi, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) != p.dim {
			return nil, fmt.Errorf("Gemini API returned invalid embedding at batch index %d", bi)
		}
		results[batchIndices[bi]] = pgvector.NewVector(emb.Values)
	}

	return results, nil
}

// Dimension returns the expected embedding dimension for the configured model.
func (p *GeminiProvider) Dimension() int {
	return p.dim
}

// Status returns the operational status of the provider.
func (p *GeminiProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

// Close releases the underlying API client.
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

var _ EmbeddingProvider = (*GeminiProvider)(nil)
