package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vjranagit/pricefeed/pkg/scheduler"
	"github.com/vjranagit/pricefeed/pkg/storage"
	"github.com/vjranagit/pricefeed/pkg/types"
)

// Server binds the query and command operations to HTTP/JSON.
type Server struct {
	store  storage.Store
	sched  *scheduler.Scheduler
	addr   string
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(addr string, store storage.Store, sched *scheduler.Scheduler, logger *zap.Logger) *Server {
	return &Server{
		store:  store,
		sched:  sched,
		addr:   addr,
		logger: logger,
	}
}

// Handler returns the route table, for serving and for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/prices/latest", s.handleLatest)
	mux.HandleFunc("/api/v1/prices/history", s.handleHistory)
	mux.HandleFunc("/api/v1/collect", s.handleCollect)
	mux.HandleFunc("/api/v1/pairs", s.handlePairs)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server and blocks until it shuts down.
func (s *Server) Start() error {
	s.init()
	return s.server.ListenAndServe()
}

// Serve runs the HTTP server on an externally provided listener, such as
// one opened by the identity provider.
func (s *Server) Serve(ln net.Listener) error {
	s.init()
	return s.server.Serve(ln)
}

func (s *Server) init() {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // collect waits for the run
	}
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleLatest answers one latest record (or null) per requested pair, in
// request order.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req types.LatestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Pairs == nil {
		writeError(w, http.StatusBadRequest, "pairs is required")
		return
	}

	results := make([]*types.Record, 0, len(req.Pairs))
	for _, pair := range req.Pairs {
		rec, err := s.store.Latest(r.Context(), pair)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				results = append(results, nil)
				continue
			}
			s.logger.Error("latest lookup failed", zap.String("pair", pair), zap.Error(err))
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("lookup %s: %v", pair, err))
			return
		}
		results = append(results, rec)
	}

	writeJSON(w, http.StatusOK, results)
}

// handleHistory answers the records of each requested pair within the
// inclusive [from, to] window, ascending by timestamp.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req types.HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Pairs == nil {
		writeError(w, http.StatusBadRequest, "pairs is required")
		return
	}

	results := make(map[string][]types.Record, len(req.Pairs))
	for _, pair := range req.Pairs {
		records, err := s.store.Range(r.Context(), pair, req.From, req.To)
		if err != nil {
			s.logger.Error("range lookup failed", zap.String("pair", pair), zap.Error(err))
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("lookup %s: %v", pair, err))
			return
		}
		results[pair] = records
	}

	writeJSON(w, http.StatusOK, results)
}

// handleCollect triggers an immediate collection run and answers once the
// run it coalesced with has completed.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := s.sched.TriggerAndWait(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("trigger abandoned: %v", err))
		return
	}

	resp := types.CollectResponse{Success: result.Err == nil}
	if result.Err != nil {
		resp.Message = fmt.Sprintf("collection run %s failed: %v", result.ExecutionID, result.Err)
	} else {
		resp.Message = fmt.Sprintf("collection run %s completed", result.ExecutionID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handlePairs lists the pairs present in the store.
func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pairs, err := s.store.Series(r.Context())
	if err != nil {
		s.logger.Error("series listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list pairs: %v", err))
		return
	}
	if pairs == nil {
		pairs = []string{}
	}

	writeJSON(w, http.StatusOK, map[string][]string{"pairs": pairs})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
