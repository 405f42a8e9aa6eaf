package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

func TestVerify_Success(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": userID.String()})
	}))
	defer srv.Close()

	verifier, err := NewGoTrueAdapter(srv.URL, "anon")
	if err != nil {
		t.Fatalf("creating verifier: %v", err)
	}

	got, err := verifier.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got != userID {
		t.Errorf("expected user id %s, got %s", userID, got)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	verifier, err := NewGoTrueAdapter("http://localhost", "")
	if err != nil {
		t.Fatalf("creating verifier: %v", err)
	}

	_, err = verifier.Verify(context.Background(), "")
	if !errors.Is(err, entities.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	verifier, err := NewGoTrueAdapter(srv.URL, "")
	if err != nil {
		t.Fatalf("creating verifier: %v", err)
	}

	_, err = verifier.Verify(context.Background(), "bad-token")
	if !errors.Is(err, entities.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNewGoTrueAdapter_MissingURL(t *testing.T) {
	_, err := NewGoTrueAdapter("", "")
	if !errors.Is(err, entities.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}
