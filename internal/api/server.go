// Package api provides a read-only HTTP view of a running simulation.
// With a database attached it also serves the stored run, its snapshots,
// per-deme statistics and 0-D summaries.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/conjunction/internal/engine"
	"github.com/talgya/conjunction/internal/persistence"
)

// Server serves the latest run status over HTTP.
type Server struct {
	Addr string
	DB   *persistence.DB // optional; enables /api/v1/snapshots

	mu     sync.RWMutex
	status engine.Status
}

// Publish replaces the status served to clients. Safe for concurrent use.
func (s *Server) Publish(st engine.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/v1/run", s.handleRun)
	mux.HandleFunc("/api/v1/demes", s.handleDemes)
	mux.HandleFunc("/api/v1/zerod", s.handleZeroD)
	return corsMiddleware(mux)
}

// Start begins serving in a goroutine and shuts down when ctx is done.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "snapshots", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// corsMiddleware allows the origins listed in CORS_ORIGINS (comma separated)
// and local dev servers.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()
	writeJSON(w, st)
}

// storeRequest checks the method and the database, and returns the run the
// request asks about: the "run" query parameter or the current run.
func (s *Server) storeRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusNotFound)
		return "", false
	}
	runID := r.URL.Query().Get("run")
	if runID == "" {
		s.mu.RLock()
		runID = s.status.RunID
		s.mu.RUnlock()
	}
	return runID, true
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.storeRequest(w, r)
	if !ok {
		return
	}
	snaps, err := s.DB.Snapshots(runID)
	if err != nil {
		slog.Error("list snapshots", "run", runID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	type snapshot struct {
		Generation      int     `json:"generation"`
		Order           int     `json:"order"`
		Demes           int     `json:"demes"`
		Population      int     `json:"population"`
		MeanHybridIndex float64 `json:"mean_hybrid_index"`
	}
	out := make([]snapshot, len(snaps))
	for i, sn := range snaps {
		out[i] = snapshot{sn.Generation, sn.Order, sn.Demes, sn.Population, sn.MeanHybridIndex}
	}
	writeJSON(w, map[string]any{"run_id": runID, "snapshots": out})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.storeRequest(w, r)
	if !ok {
		return
	}
	run, err := s.DB.GetRun(runID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get run", "run", runID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	meta, err := s.DB.RunMeta(runID)
	if err != nil {
		slog.Error("get run meta", "run", runID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"run": run, "meta": meta})
}

func (s *Server) handleDemes(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.storeRequest(w, r)
	if !ok {
		return
	}
	generation, err := strconv.Atoi(r.URL.Query().Get("generation"))
	if err != nil {
		http.Error(w, "generation must be an integer", http.StatusBadRequest)
		return
	}
	rows, err := s.DB.DemeStats(runID, generation)
	if err != nil {
		slog.Error("list deme stats", "run", runID, "generation", generation, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	type deme struct {
		persistence.DemeRow
		Frequencies json.RawMessage `json:"frequencies,omitempty"`
	}
	out := make([]deme, len(rows))
	for i, row := range rows {
		out[i] = deme{DemeRow: row}
		if row.Frequencies != "" && row.Frequencies != "null" {
			out[i].Frequencies = json.RawMessage(row.Frequencies)
		}
	}
	writeJSON(w, map[string]any{"run_id": runID, "generation": generation, "demes": out})
}

func (s *Server) handleZeroD(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.storeRequest(w, r)
	if !ok {
		return
	}
	rows, err := s.DB.ZeroDStats(runID)
	if err != nil {
		slog.Error("list 0-D stats", "run", runID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.ZeroDRow{}
	}
	writeJSON(w, map[string]any{"run_id": runID, "summaries": rows})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
