// Package identity provides the auth-service token verification adapter.
// Clean Architecture: Adapter implementing ports.IdentityVerifier.
// Session issuance lives upstream; this adapter only resolves a bearer token
// to the already-authenticated caller's identity.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

// GoTrueAdapter verifies tokens against a GoTrue-compatible auth service.
type GoTrueAdapter struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewGoTrueAdapter creates a verifier for the auth service at baseURL.
// Returns entities.ErrConfigurationMissing when the URL is absent.
func NewGoTrueAdapter(baseURL, anonKey string) (*GoTrueAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("auth service URL not configured: %w", entities.ErrConfigurationMissing)
	}
	return &GoTrueAdapter{
		baseURL: baseURL,
		anonKey: anonKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// userResponse is the auth service's user lookup response.
type userResponse struct {
	ID string `json:"id"`
}

// Verify resolves the bearer token to the caller's user id.
// Any lookup failure maps to entities.ErrUnauthorized.
func (a *GoTrueAdapter) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, fmt.Errorf("missing bearer token: %w", entities.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if a.anonKey != "" {
		req.Header.Set("apikey", a.anonKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("calling auth service: %w: %w", entities.ErrUnauthorized, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("auth service returned status %d: %w", resp.StatusCode, entities.ErrUnauthorized)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return uuid.Nil, fmt.Errorf("decoding user: %w: %w", entities.ErrUnauthorized, err)
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", user.ID, entities.ErrUnauthorized)
	}
	return id, nil
}
