// Package server implements the HTTP surface: the /chat endpoint driving the
// agent loop, health and metrics endpoints, and the embedded chat UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/schedbot/schedbot/agent"
	"github.com/schedbot/schedbot/core"
	"github.com/schedbot/schedbot/logging"
	"github.com/schedbot/schedbot/session"
)

// fallbackAnswer is returned (and recorded) when the agent could not produce
// any text at all. Agent-level failures such as loop exhaustion already
// arrive as conversational text and do not use this.
const fallbackAnswer = "Sorry, I ran into a problem while processing that. Please try again."

// Server is the HTTP API server.
type Server struct {
	addr       string
	agent      *agent.Agent
	store      core.SessionStore
	locks      *session.KeyedMutex
	logger     logging.Logger
	metrics    *Metrics
	httpServer *http.Server
}

// New creates an API server wired to the given agent and session store.
func New(addr string, ag *agent.Agent, store core.SessionStore, logger logging.Logger) *Server {
	return &Server{
		addr:    addr,
		agent:   ag,
		store:   store,
		locks:   session.NewKeyedMutex(),
		logger:  logging.OrNoOp(logger),
		metrics: NewMetrics(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /", s.uiHandler())
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// handleChat runs one complete exchange: load history, run the agent loop,
// then append the user and assistant turns. Appending happens after the loop
// so a mid-loop failure still records the exchange with the fallback text.
// Agent errors never surface as non-200 responses.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		s.metrics.ObserveChat("bad_request", time.Since(start).Seconds())
		return
	}
	if req.Message == "" || req.SessionID == "" {
		http.Error(w, "message and session_id are required", http.StatusBadRequest)
		s.metrics.ObserveChat("bad_request", time.Since(start).Seconds())
		return
	}

	s.metrics.activeChats.Inc()
	defer s.metrics.activeChats.Dec()

	// Serialize whole exchanges per session so concurrent requests cannot
	// interleave their turn appends.
	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	outcome := "ok"
	answer := s.runExchange(r.Context(), req.SessionID, req.Message, &outcome)

	s.metrics.ObserveChat(outcome, time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, chatResponse{Response: answer}, s.logger)
}

// runExchange produces the answer text and records both turns.
func (s *Server) runExchange(ctx context.Context, sessionID, message string, outcome *string) string {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		s.logger.Error("server.session.load_failed", "session_id", sessionID, "error", err.Error())
		*outcome = "store_error"
		return fallbackAnswer
	}
	if sess.Len() == 0 {
		s.metrics.sessionsTotal.Inc()
	}

	answer, err := s.agent.Run(ctx, sess.Turns(), message)
	if err != nil {
		s.logger.Error("server.agent.error", "session_id", sessionID, "error", err.Error())
		*outcome = "agent_error"
		answer = fallbackAnswer
	}

	if err := s.store.AppendTurn(sessionID, core.NewUserTurn(message)); err != nil {
		s.logger.Error("server.session.append_failed", "session_id", sessionID, "error", err.Error())
	}
	if err := s.store.AppendTurn(sessionID, core.NewAssistantTurn(answer)); err != nil {
		s.logger.Error("server.session.append_failed", "session_id", sessionID, "error", err.Error())
	}

	return answer
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger logging.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("server.write_response_failed", "error", err.Error())
	}
}
