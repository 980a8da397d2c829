// Package api provides the HTTP REST API server for TrendLens.
//
// It exposes endpoints for the tracked category tree, dashboard
// settings, on-demand trend analysis, website scanning, alert
// previews, and WebSocket streaming of pipeline progress.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/internal/pipeline"
	"github.com/trendlens/trendlens/internal/settings"
	"github.com/trendlens/trendlens/internal/store"
	"github.com/trendlens/trendlens/internal/trend"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/web"
)

// TreeStore is the slice of the keyword store the API needs.
type TreeStore interface {
	LoadTree(ctx context.Context) ([]models.Category, error)
	ReplaceTree(ctx context.Context, tree []models.Category) error
	UpsertCategory(ctx context.Context, name string) (uint, error)
	Categories(ctx context.Context) ([]store.Category, error)
	CountKeywords(ctx context.Context) (int64, error)
}

// SettingsStore is the slice of the settings client the API needs.
type SettingsStore interface {
	Get(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, s settings.Settings) error
	Keywords(ctx context.Context) ([]string, error)
	SaveKeywords(ctx context.Context, keywords []string) error
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	store    TreeStore
	settings SettingsStore
	pipe     *pipeline.Pipeline
	wsHub    *WSHub
	serveUI  bool // when true, serve the embedded web UI at /
}

// NewServer creates a fully wired API server: MySQL keyword store,
// Redis settings, and the analysis pipeline from config.
func NewServer(cfg *config.Config) (*Server, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("api: open store: %w", err)
	}

	set := settings.New(cfg.Redis)

	hub := NewWSHub()
	pipe, err := pipeline.FromConfig(cfg, pipeline.WithProgress(func(p pipeline.Progress) {
		hub.Broadcast(WSMessage{Type: "progress", Data: p})
	}))
	if err != nil {
		return nil, err
	}

	srv := NewServerWith(cfg, st, set, pipe)
	srv.wsHub = hub
	srv.serveUI = true
	srv.router = srv.buildRouter()
	return srv, nil
}

// NewServerWith creates a server around pre-built dependencies, API
// routes only. Tests use it to swap in stub stores and a pipeline on
// a fake provider; NewServer adds the embedded UI on top.
func NewServerWith(cfg *config.Config, st TreeStore, set SettingsStore, pipe *pipeline.Pipeline) *Server {
	srv := &Server{
		cfg:      cfg,
		store:    st,
		settings: set,
		pipe:     pipe,
		wsHub:    NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Tracked category tree
		r.Get("/tree", s.handleGetTree)
		r.Put("/tree", s.handleReplaceTree)
		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)

		// Dashboard settings + tracked keyword list
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Get("/keywords", s.handleGetKeywords)
		r.Put("/keywords", s.handleUpdateKeywords)

		// Analysis
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/tree", s.handleAnalyzeTree)
		r.Get("/alerts", s.handleAlertsPreview)

		// Website scan
		r.Post("/scan", s.handleScan)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (SPA with fallback to index.html)
	if s.serveUI {
		s.mountSPA(r, web.DistFS())
	}

	return r
}

// mountSPA serves the embedded dashboard as a single-page app. Static
// assets are served directly; unknown paths fall back to index.html
// for client-side routing.
func (s *Server) mountSPA(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		f, err := distFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, distFS)
			return
		}
		f.Close()

		if strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		fileServer.ServeHTTP(w, r)
	})
}

func serveIndexHTML(w http.ResponseWriter, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateCategoryRequest is the body for POST /api/v1/categories.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// TreeRequest is the body for PUT /api/v1/tree.
type TreeRequest struct {
	Categories []models.Category `json:"categories"`
}

// KeywordsRequest is the body for PUT /api/v1/keywords.
type KeywordsRequest struct {
	Keywords []string `json:"keywords"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze. With no
// keywords the tracked list from settings is analyzed.
type AnalyzeRequest struct {
	Keywords []string `json:"keywords,omitempty"`
}

// ScanRequest is the body for POST /api/v1/scan.
type ScanRequest struct {
	URL  string `json:"url"`
	Save bool   `json:"save,omitempty"` // replace the stored tree with the result
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": "dev",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	count, err := s.store.CountKeywords(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	redisOK := s.settings.Ping(ctx) == nil

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"tracked_keywords": count,
			"redis":            redisOK,
			"ws_clients":       s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	tree, err := s.store.LoadTree(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: tree})
}

func (s *Server) handleReplaceTree(w http.ResponseWriter, r *http.Request) {
	var req TreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.store.ReplaceTree(ctx, req.Categories); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tree, err := s.store.LoadTree(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: tree})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	cats, err := s.store.Categories(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: cats})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, err := s.store.UpsertCategory(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]interface{}{"category_id": id, "category": req.Name},
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	set, err := s.settings.Get(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: set})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var incoming settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.settings.Save(ctx, incoming); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: incoming})
}

func (s *Server) handleGetKeywords(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	keywords, err := s.settings.Keywords(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: keywords})
}

func (s *Server) handleUpdateKeywords(w http.ResponseWriter, r *http.Request) {
	var req KeywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.settings.SaveKeywords(ctx, req.Keywords); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: req.Keywords})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	keywords := req.Keywords
	if len(keywords) == 0 {
		var err error
		keywords, err = s.settings.Keywords(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if len(keywords) == 0 {
		writeError(w, http.StatusBadRequest, "no keywords to analyze")
		return
	}

	results, err := s.pipe.AnalyzeKeywords(ctx, keywords)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]interface{}{"keywords": len(results)},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleAnalyzeTree(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	tree, err := s.store.LoadTree(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(tree) == 0 {
		writeError(w, http.StatusBadRequest, "no tracked categories")
		return
	}

	analyzed, err := s.pipe.AnalyzeTree(ctx, tree)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]interface{}{"categories": len(analyzed)},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: analyzed})
}

func (s *Server) handleAlertsPreview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	set, err := s.settings.Get(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keywords, err := s.settings.Keywords(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(keywords) == 0 {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: []models.Alert{}})
		return
	}

	th := trend.Thresholds{
		MinIncreasePct: set.NotificationThreshold,
		MaxDecreasePct: -set.NotificationThreshold,
		MinHits:        set.MinHitsThreshold,
	}
	results, alerts, err := s.pipe.AnalyzeAlerts(ctx, keywords, th)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}

	if len(alerts) > 0 {
		s.wsHub.Broadcast(WSMessage{Type: "alerts", Data: alerts})
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"alerts":            alerts,
			"keywords_analyzed": len(results),
		},
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	tree, err := s.pipe.ScanWebsite(ctx, req.URL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Save {
		if err := s.store.ReplaceTree(ctx, tree); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: tree})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
