package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m-v-k/recall"
	"github.com/m-v-k/recall/cachestore"
	"github.com/m-v-k/recall/fault"
	"github.com/m-v-k/recall/health"
	"github.com/m-v-k/recall/server"
)

type httpServer struct {
	options server.Options
	recall  *recall.Recall
	server  *http.Server
}

func (s *httpServer) Run() error {
	slog.InfoContext(s.options.Context, "http server listening", "address", s.options.Address)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *httpServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealth triggers a full re-probe and serializes the aggregate.
// It must answer even when every component is failed: nothing here
// touches a backing store directly.
func (s *httpServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Detached from the request: a monitoring client disconnecting
	// mid-refresh must not cancel the probes and publish an all-failed
	// aggregate. Per-target timeouts still bound each probe.
	snapshot := s.recall.RefreshHealth(context.WithoutCancel(r.Context()))

	code := http.StatusOK
	if snapshot.Overall == health.StateFailed {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, snapshot)
}

func (s *httpServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["id"]

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if len(strings.TrimSpace(req.Content)) == 0 {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	answer, retrieved, err := s.recall.Respond(r.Context(), sessionId, req.Content)
	if err != nil {
		slog.ErrorContext(r.Context(), "respond failed", "session_id", sessionId, "error", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	snapshot := s.recall.Health()

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":       answer,
		"sources_used": retrieved.SourcesUsed,
		"degraded":     snapshot.Overall != health.StateHealthy,
	})
}

func (s *httpServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); len(raw) > 0 {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	result, err := s.recall.History(r.Context(), sessionId, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "history fetch failed", "session_id", sessionId, "error", err)
		writeError(w, http.StatusBadGateway, "history fetch failed")
		return
	}

	turns := result.Turns
	if turns == nil {
		turns = []cachestore.Turn{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"turns":     turns,
		"available": result.Available,
	})
}

func (s *httpServer) handleRemember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if len(strings.TrimSpace(req.Text)) == 0 {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	id, err := s.recall.Remember(r.Context(), req.Text, req.Metadata)
	if err != nil {
		if fault.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "memory is unavailable; retry later")
			return
		}
		slog.ErrorContext(r.Context(), "remember failed", "error", err)
		writeError(w, http.StatusBadGateway, "memory write failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]any{"error": detail})
}

// NewHandler builds the route table without binding a listener.
func NewHandler(r *recall.Recall) http.Handler {
	s := &httpServer{recall: r}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/v1/sessions/{id}/messages", s.handleMessage).Methods(http.MethodPost)
	router.HandleFunc("/v1/sessions/{id}/history", s.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/v1/memories", s.handleRemember).Methods(http.MethodPost)

	return router
}

func NewServer(r *recall.Recall, opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	s := &httpServer{
		options: options,
		recall:  r,
	}

	handler := NewHandler(r)
	if ms, ok := MiddlewareFrom(options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	s.server = &http.Server{
		Addr:    options.Address,
		Handler: handler,
	}

	return s
}
