// Package embedding provides the OpenAI embedding adapter.
// Clean Architecture: This is an adapter that implements ports.EmbeddingService.
// It knows about the OpenAI API but the domain layer doesn't.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "text-embedding-3-small"

	// maxRetries bounds attempts on transient failures (429/5xx/network).
	maxRetries     = 2
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// OpenAIAdapter implements ports.EmbeddingService using the OpenAI embeddings API.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIAdapter creates a new OpenAI embedding adapter.
// Returns entities.ErrConfigurationMissing when the API key is absent.
func NewOpenAIAdapter(baseURL, apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured: %w", entities.ErrConfigurationMissing)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// embedRequest is the OpenAI embeddings API request format.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the OpenAI embeddings API response format.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding vector for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured: %w", entities.ErrConfigurationMissing)
	}

	body, err := json.Marshal(embedRequest{Model: a.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	delay := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		vector, retryable, err := a.embedOnce(ctx, body)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("embedding canceled: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, maxBackoff)
		}
	}
	return nil, lastErr
}

// embedOnce performs one API call. The second return value reports whether the
// failure is transient and worth retrying.
func (a *OpenAIAdapter) embedOnce(ctx context.Context, body []byte) ([]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("calling embedding service: %w: %w", entities.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("embedding service returned status %d: %w", resp.StatusCode, entities.ErrUpstreamUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("embedding service returned status %d: %w", resp.StatusCode, entities.ErrUpstreamUnavailable)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decoding response: %w: %w", entities.ErrUpstreamUnavailable, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, false, fmt.Errorf("embedding service returned no embedding: %w", entities.ErrUpstreamUnavailable)
	}

	return out.Data[0].Embedding, false, nil
}
