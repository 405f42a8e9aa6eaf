package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
	"github.com/edgarchat/edgarchat/internal/domain/usecases"
)

// --- Mocks ---

type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.vector, m.err
}

type mockSearcher struct {
	matches []entities.RetrievedMatch
	err     error
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, _ int) ([]entities.RetrievedMatch, error) {
	return m.matches, m.err
}

type mockCompleter struct {
	answer string
	err    error
}

func (m *mockCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return m.answer, m.err
}

type mockStore struct {
	createdID     uuid.UUID
	createErr     error
	appendErr     error
	conversations []entities.Conversation
	messages      []entities.Message
	listErr       error
	messagesErr   error
	renameErr     error
	renamedTitle  string
}

func (m *mockStore) CreateConversation(_ context.Context, _ uuid.UUID, _ string) (uuid.UUID, error) {
	return m.createdID, m.createErr
}

func (m *mockStore) AppendMessage(_ context.Context, _, _, _ string) error {
	return m.appendErr
}

func (m *mockStore) ListConversations(_ context.Context, _ uuid.UUID) ([]entities.Conversation, error) {
	return m.conversations, m.listErr
}

func (m *mockStore) Messages(_ context.Context, _, _ uuid.UUID) ([]entities.Message, error) {
	return m.messages, m.messagesErr
}

func (m *mockStore) RenameConversation(_ context.Context, _, _ uuid.UUID, title string) error {
	m.renamedTitle = title
	return m.renameErr
}

type mockVerifier struct {
	userID uuid.UUID
	err    error
	token  string
}

func (m *mockVerifier) Verify(_ context.Context, token string) (uuid.UUID, error) {
	m.token = token
	return m.userID, m.err
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(embedder *mockEmbedder, searcher *mockSearcher, completer *mockCompleter, store *mockStore, verifier *mockVerifier) *Server {
	logger := testLogger()
	uc := usecases.NewQueryUseCase(embedder, searcher, completer, store, logger, 5)
	return NewServer(uc, store, verifier, logger)
}

func defaultTestServer() (*Server, *mockStore) {
	store := &mockStore{createdID: uuid.New()}
	srv := newTestServer(
		&mockEmbedder{vector: []float32{0.1, 0.2}},
		&mockSearcher{matches: []entities.RetrievedMatch{
			{Text: "Revenue grew 12% year over year.", SourceURL: "https://sec.gov/filing-1", Score: 0.91},
		}},
		&mockCompleter{answer: "Revenue grew 12%."},
		store,
		&mockVerifier{userID: uuid.New()},
	)
	return srv, store
}

func doRequest(s *Server, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authorized {
		req.Header.Set("Authorization", "Bearer test-token")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	msg, ok := body["error"]
	if !ok {
		t.Fatalf("error body missing 'error' key: %s", rec.Body.String())
	}
	return msg
}

// --- Query endpoint ---

func TestQuery_Success(t *testing.T) {
	srv, store := defaultTestServer()

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":"What was the revenue?"}`, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["response"] != "Revenue grew 12%." {
		t.Errorf("unexpected response text: %v", resp["response"])
	}
	if resp["conversationId"] != store.createdID.String() {
		t.Errorf("expected conversation id %s, got %v", store.createdID, resp["conversationId"])
	}
	sources, ok := resp["sources"].([]any)
	if !ok || len(sources) != 1 || sources[0] != "https://sec.gov/filing-1" {
		t.Errorf("unexpected sources: %v", resp["sources"])
	}
}

func TestQuery_NoSourcesOmitsKey(t *testing.T) {
	store := &mockStore{createdID: uuid.New()}
	srv := newTestServer(
		&mockEmbedder{vector: []float32{0.1}},
		&mockSearcher{},
		&mockCompleter{answer: "I don't have that information."},
		store,
		&mockVerifier{userID: uuid.New()},
	)

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":"anything"}`, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, present := resp["sources"]; present {
		t.Errorf("sources key should be omitted when empty, got %v", resp["sources"])
	}
}

func TestQuery_EmptyPrompt(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":""}`, true)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Prompt is required" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestQuery_InvalidJSONBody(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodPost, "/api/query", `{not json`, true)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	decodeError(t, rec)
}

func TestQuery_MissingAuthorization(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":"hi"}`, false)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	decodeError(t, rec)
}

func TestQuery_RejectedToken(t *testing.T) {
	store := &mockStore{createdID: uuid.New()}
	srv := newTestServer(
		&mockEmbedder{vector: []float32{0.1}},
		&mockSearcher{},
		&mockCompleter{answer: "x"},
		store,
		&mockVerifier{err: fmt.Errorf("expired: %w", entities.ErrUnauthorized)},
	)

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":"hi"}`, true)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Unauthorized" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestQuery_UpstreamFailure(t *testing.T) {
	store := &mockStore{createdID: uuid.New()}
	srv := newTestServer(
		&mockEmbedder{err: fmt.Errorf("embedding API returned status 503: %w", entities.ErrUpstreamUnavailable)},
		&mockSearcher{},
		&mockCompleter{answer: "x"},
		store,
		&mockVerifier{userID: uuid.New()},
	)

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":"hi"}`, true)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Failed to generate AI response" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestQuery_AppendFailureStillAnswers(t *testing.T) {
	store := &mockStore{
		createdID: uuid.New(),
		appendErr: fmt.Errorf("insert failed: %w", entities.ErrPersistence),
	}
	srv := newTestServer(
		&mockEmbedder{vector: []float32{0.1}},
		&mockSearcher{},
		&mockCompleter{answer: "still answered"},
		store,
		&mockVerifier{userID: uuid.New()},
	)

	rec := doRequest(srv, http.MethodPost, "/api/query", `{"prompt":"hi"}`, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite append failure, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["response"] != "still answered" {
		t.Errorf("unexpected response: %v", resp["response"])
	}
}

func TestQuery_WrongMethod(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodGet, "/api/query", "", true)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}
	decodeError(t, rec)
}

func TestUnknownPath_JSONBody(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodGet, "/api/nope", "", true)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}
	decodeError(t, rec)
}

func TestQuery_NonBearerScheme(t *testing.T) {
	srv, _ := defaultTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-Bearer scheme, got %d", rec.Code)
	}
	decodeError(t, rec)
}

// --- Conversation endpoints ---

func TestListConversations(t *testing.T) {
	srv, store := defaultTestServer()
	store.conversations = []entities.Conversation{
		{ID: uuid.New(), Title: "untitled conversation", MessageCount: 2},
	}

	rec := doRequest(srv, http.MethodGet, "/api/conversations", "", true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []entities.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 1 || got[0].Title != "untitled conversation" {
		t.Errorf("unexpected conversations: %+v", got)
	}
}

func TestListConversations_EmptyIsArray(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodGet, "/api/conversations", "", true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty array body, got %s", body)
	}
}

func TestMessages_NotOwned(t *testing.T) {
	srv, store := defaultTestServer()
	store.messagesErr = fmt.Errorf("conversation not found: %w", entities.ErrNotFound)

	rec := doRequest(srv, http.MethodGet, "/api/conversations/"+uuid.NewString()+"/messages", "", true)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Conversation not found" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestMessages_InvalidID(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodGet, "/api/conversations/not-a-uuid/messages", "", true)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRenameConversation(t *testing.T) {
	srv, store := defaultTestServer()

	rec := doRequest(srv, http.MethodPatch, "/api/conversations/"+uuid.NewString(), `{"title":"Q3 revenue"}`, true)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.renamedTitle != "Q3 revenue" {
		t.Errorf("expected title to reach the store, got %q", store.renamedTitle)
	}
}

func TestRenameConversation_EmptyTitle(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodPatch, "/api/conversations/"+uuid.NewString(), `{"title":""}`, true)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- Cross-cutting ---

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodGet, "/api/health", "", false)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := defaultTestServer()

	rec := doRequest(srv, http.MethodOptions, "/api/query", "", false)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestRecovery_PanicReturns500(t *testing.T) {
	srv, _ := defaultTestServer()
	srv.mux.HandleFunc("GET /panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := doRequest(srv, http.MethodGet, "/panic", "", false)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}
