package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
)

// NewFallbackEmbeddingService creates a fallback service over the given
// providers. All providers must agree on dimension: the similarity index is
// built once per run and cannot mix vector sizes.
func NewFallbackEmbeddingService(providers []EmbeddingProvider, strategy RetryStrategy) (*FallbackEmbeddingService, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one embedding provider is required")
	}
	if strategy == nil {
		strategy = &SimpleRetryStrategy{MaxAttempts: 3, BaseDelayMs: 100}
	}
	if len(providers) > 1 {
		dim := providers[0].Dimension()
		for i := 1; i < len(providers); i++ {
			if providers[i].Dimension() != dim {
				return nil, fmt.Errorf("all embedding providers must have the same dimension (provider %s has %d, expected %d)",
					providers[i].Name(), providers[i].Dimension(), dim)
			}
		}
	}

	return &FallbackEmbeddingService{
		Providers:      providers,
		ActiveProvider: 0,
		RetryStrategy:  strategy,
	}, nil
}

// Dimension returns the dimension of the currently active provider.
func (s *FallbackEmbeddingService) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Providers) == 0 {
		log.Warn("fallback embedding service has no providers, returning dimension 0")
		return 0
	}
	return s.Providers[s.ActiveProvider].Dimension()
}

// GenerateEmbedding tries providers with retries until one succeeds or all fail.
func (s *FallbackEmbeddingService) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	s.mu.RLock()
	initialProviderIndex := s.ActiveProvider
	numProviders := len(s.Providers)
	if numProviders == 0 {
		s.mu.RUnlock()
		return pgvector.Vector{}, fmt.Errorf("no embedding providers configured")
	}
	s.mu.RUnlock()

	var lastErr error
	attempt := 0

	for {
		s.mu.RLock()
		provider := s.Providers[s.ActiveProvider]
		s.mu.RUnlock()

		vec, err := provider.GenerateEmbedding(ctx, text)

		if ctx.Err() != nil {
			return pgvector.Vector{}, fmt.Errorf("context cancelled during embedding generation: %w", ctx.Err())
		}

		if err == nil {
			return vec, nil
		}

		lastErr = fmt.Errorf("provider %s failed: %w", provider.Name(), err)
		log.Warnf("embedding provider %s failed: %v", provider.Name(), err)

		backoffMs := s.RetryStrategy.NextBackoff(attempt)
		if backoffMs < 0 {
			switched, exhausted := s.switchProvider(&initialProviderIndex)
			if exhausted {
				log.Error("cycled through all embedding providers, giving up")
				return pgvector.Vector{}, fmt.Errorf("all embedding providers failed: last error: %w", lastErr)
			}
			log.Infof("switching active embedding provider to %s", switched)
			attempt = 0
			continue
		}

		log.Debugf("waiting %dms before retrying provider %s (attempt %d)", backoffMs, provider.Name(), attempt+1)
		select {
		case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			attempt++
		case <-ctx.Done():
			return pgvector.Vector{}, fmt.Errorf("context cancelled while waiting to retry: %w", ctx.Err())
		}
	}
}

// GenerateEmbeddings handles batch generation with fallback and retries.
func (s *FallbackEmbeddingService) GenerateEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	s.mu.RLock()
	initialProviderIndex := s.ActiveProvider
	numProviders := len(s.Providers)
	if numProviders == 0 {
		s.mu.RUnlock()
		return nil, fmt.Errorf("no embedding providers configured")
	}
	s.mu.RUnlock()

	var lastErr error
	attempt := 0

	for {
		s.mu.RLock()
		provider := s.Providers[s.ActiveProvider]
		s.mu.RUnlock()

		log.Debugf("trying provider %s (%s) for batch of %d texts", provider.Name(), provider.ModelName(), len(texts))
		vecs, err := provider.GenerateEmbeddings(ctx, texts)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during batch embedding generation: %w", ctx.Err())
		}

		if err == nil {
			if len(vecs) == len(texts) {
				return vecs, nil
			}
			// A provider returning the wrong count is treated as a failure.
			lastErr = fmt.Errorf("provider %s returned mismatched vector count (%d != %d)",
				provider.Name(), len(vecs), len(texts))
			log.Warn(lastErr)
		} else {
			lastErr = fmt.Errorf("provider %s failed batch generation: %w", provider.Name(), err)
			log.Warnf("embedding provider %s failed batch generation: %v", provider.Name(), err)
		}

		backoffMs := s.RetryStrategy.NextBackoff(attempt)
		if backoffMs < 0 {
			switched, exhausted := s.switchProvider(&initialProviderIndex)
			if exhausted {
				log.Error("cycled through all embedding providers, batch embedding failed")
				return nil, fmt.Errorf("all embedding providers failed batch generation: last error: %w", lastErr)
			}
			log.Infof("switching active embedding provider to %s", switched)
			attempt = 0
			continue
		}

		log.Debugf("waiting %dms before retrying batch with provider %s (attempt %d)", backoffMs, provider.Name(), attempt+1)
		select {
		case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			attempt++
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while waiting to retry batch: %w", ctx.Err())
		}
	}
}

// switchProvider advances to the next provider. It reports the new provider
// name and whether the rotation has come back around to where this call's
// sequence started, meaning every provider has had its retry cycle.
func (s *FallbackEmbeddingService) switchProvider(initialIndex *int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := (s.ActiveProvider + 1) % len(s.Providers)
	if next == *initialIndex {
		return "", true
	}
	s.ActiveProvider = next
	return s.Providers[next].Name(), false
}
