// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
	"github.com/edgarchat/edgarchat/internal/domain/ports"
	"github.com/edgarchat/edgarchat/internal/domain/usecases"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to fend off slow-client stalls.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 120 * time.Second
	IdleTimeout  = 120 * time.Second
)

// Server is the HTTP server for the query API.
type Server struct {
	query         *usecases.QueryUseCase
	conversations ports.ConversationStore
	identity      ports.IdentityVerifier
	logger        *slog.Logger
	mux           *http.ServeMux
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(
	query *usecases.QueryUseCase,
	conversations ports.ConversationStore,
	identity ports.IdentityVerifier,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		query:         query,
		conversations: conversations,
		identity:      identity,
		logger:        logger,
		mux:           http.NewServeMux(),
	}

	// Method-scoped patterns; the mux answers 405 for wrong verbs.
	s.mux.Handle("POST /api/query", s.withAuth(s.handleQuery))
	s.mux.Handle("GET /api/conversations", s.withAuth(s.handleListConversations))
	s.mux.Handle("GET /api/conversations/{id}/messages", s.withAuth(s.handleMessages))
	s.mux.Handle("PATCH /api/conversations/{id}", s.withAuth(s.handleRename))
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery -> logging -> cors -> json errors -> mux.
func (s *Server) Handler() http.Handler {
	return s.recoveryMiddleware(s.loggingMiddleware(corsMiddleware(jsonErrorMiddleware(s.mux))))
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// queryRequest is the POST /api/query body.
type queryRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversationId"`
}

// handleQuery runs the full RAG pipeline for one prompt.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.query.Query(r.Context(), userIDFrom(r.Context()), &entities.Query{
		Prompt:         req.Prompt,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListConversations returns the caller's conversations, most recent first.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.conversations.ListConversations(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []entities.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

// handleMessages returns one conversation's messages in creation order.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	messages, err := s.conversations.Messages(r.Context(), userIDFrom(r.Context()), conversationID)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	if messages == nil {
		messages = []entities.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// renameRequest is the PATCH /api/conversations/{id} body.
type renameRequest struct {
	Title string `json:"title"`
}

// handleRename updates a conversation's title.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := s.conversations.RenameConversation(r.Context(), userIDFrom(r.Context()), conversationID, req.Title); err != nil {
		s.writeMappedError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
