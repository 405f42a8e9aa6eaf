// Package llm provides the OpenAI chat completion adapter.
// Clean Architecture: Adapter implementing ports.CompletionService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	maxTokens   = 300
	temperature = 0.7

	maxRetries     = 2
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// defaultRequestsPerSecond throttles calls to the completion API.
	defaultRequestsPerSecond = 5
)

// FallbackResponse is returned when the upstream call succeeds but carries no
// usable content. This is a successful-call case, not an error.
const FallbackResponse = "I apologize, but I could not generate a response."

// systemPromptFormat embeds the grounding context between the role
// instructions and the behavioral directives.
const systemPromptFormat = `You are a financial AI assistant with access to SEC filing data. Use the provided context from EDGAR filings to answer the user's question accurately and concisely.

Context from SEC filings:
%s

Instructions:
- Base your response primarily on the provided context
- Be specific and cite relevant financial metrics when available
- If the context doesn't contain enough information, say so
- Keep responses focused and under 200 words
- Use a professional but conversational tone`

// OpenAIAdapter implements ports.CompletionService using the OpenAI chat API.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewOpenAIAdapter creates a new OpenAI completion adapter.
// Returns entities.ErrConfigurationMissing when the API key is absent.
func NewOpenAIAdapter(baseURL, apiKey, model string, requestsPerSecond float64) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured: %w", entities.ErrConfigurationMissing)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// chatMessage is one role-tagged message in the chat request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI chat completions API request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// chatResponse is the OpenAI chat completions API response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the role-tagged prompt and returns the generated answer.
// An empty or missing completion on a successful call yields FallbackResponse.
func (a *OpenAIAdapter) Complete(ctx context.Context, groundingContext, prompt string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured: %w", entities.ErrConfigurationMissing)
	}

	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptFormat, groundingContext)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	delay := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Rate limit each attempt, retries included.
		if err := a.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		answer, retryable, err := a.completeOnce(ctx, body)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("completion canceled: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, maxBackoff)
		}
	}
	return "", lastErr
}

func (a *OpenAIAdapter) completeOnce(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("calling completion service: %w: %w", entities.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("completion service returned status %d: %w", resp.StatusCode, entities.ErrUpstreamUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("completion service returned status %d: %w", resp.StatusCode, entities.ErrUpstreamUnavailable)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decoding response: %w: %w", entities.ErrUpstreamUnavailable, err)
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return FallbackResponse, false, nil
	}
	return out.Choices[0].Message.Content, false, nil
}
