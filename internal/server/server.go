// Package server exposes the dashboard API: stored metrics,
// competitors, summaries, and an endpoint to trigger a run.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/ingest"
	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
)

// Runner triggers a multi-platform surveillance run.
type Runner interface {
	RunAllPlatforms(ctx context.Context, userID string, competitors []string, date string) (*ingest.RunReport, error)
}

// Server handles dashboard API requests.
type Server struct {
	store  store.Store
	runner Runner
}

// New creates a Server.
func New(st store.Store, runner Runner) *Server {
	return &Server{store: st, runner: runner}
}

// Handler builds the chi router with CORS for the dashboard origin.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Get("/api/metrics", s.handleListMetrics)
	mux.Get("/api/competitors", s.handleListCompetitors)
	mux.Get("/api/summary", s.handleLatestSummary)
	mux.Post("/api/runs", s.handleTriggerRun)

	return mux
}

// ListenAndServe blocks serving the API until the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	zap.L().Info("dashboard API listening", zap.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MetricFilter{
		UserID:       q.Get("user_id"),
		CompetitorID: q.Get("competitor_id"),
		Date:         q.Get("date"),
	}
	if p := q.Get("platform"); p != "" {
		platform, ok := model.ParsePlatform(p)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown platform %q", p))
			return
		}
		filter.Platform = platform
	}
	if limit := q.Get("limit"); limit != "" {
		fmt.Sscanf(limit, "%d", &filter.Limit)
	}
	if offset := q.Get("offset"); offset != "" {
		fmt.Sscanf(offset, "%d", &filter.Offset)
	}

	metrics, err := s.store.ListDailyMetrics(r.Context(), filter)
	if err != nil {
		zap.L().Error("list metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if metrics == nil {
		metrics = []model.DailyMetric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}
	competitors, err := s.store.ListCompetitorsByUser(r.Context(), userID)
	if err != nil {
		zap.L().Error("list competitors failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if competitors == nil {
		competitors = []model.Competitor{}
	}
	writeJSON(w, http.StatusOK, competitors)
}

func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}
	snap, err := s.store.GetLatestSummary(r.Context(), userID)
	if err != nil {
		zap.L().Error("get summary failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no summary yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type runRequest struct {
	UserID      string   `json:"user_id"`
	Competitors []string `json:"competitors"`
	Date        string   `json:"date"`
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	competitors := req.Competitors
	if len(competitors) == 0 {
		stored, err := s.store.ListCompetitorsByUser(r.Context(), req.UserID)
		if err != nil {
			zap.L().Error("load competitors failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		for _, c := range stored {
			competitors = append(competitors, c.Name)
		}
	}
	if len(competitors) == 0 {
		writeError(w, http.StatusBadRequest, "no competitors to run")
		return
	}

	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	report, err := s.runner.RunAllPlatforms(r.Context(), req.UserID, competitors, date)
	if err != nil {
		zap.L().Error("triggered run failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "run failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
