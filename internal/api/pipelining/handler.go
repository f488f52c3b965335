// Package pipelining exposes chain execution and pipeline templates over
// HTTP.
package pipelining

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
	"github.com/tjfontaine/enrichment-gateway/internal/server"
)

// maxBodyBytes bounds chain requests and template payloads.
const maxBodyBytes = 16 << 20

// Handler serves the /pipelining routes and /healthz.
type Handler struct {
	runner     func() ports.PipelineRunner
	store      ports.PipelineStore
	runTimeout func() time.Duration
	logger     *slog.Logger
}

// Config configures a Handler. Runner and RunTimeout are evaluated per
// request so configuration reloads apply to the next chain.
type Config struct {
	Runner     func() ports.PipelineRunner
	Store      ports.PipelineStore
	RunTimeout func() time.Duration
	Logger     *slog.Logger
}

// NewHandler creates a new pipelining handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		runner:     cfg.Runner,
		store:      cfg.Store,
		runTimeout: cfg.RunTimeout,
		logger:     cfg.Logger,
	}
	if h.runTimeout == nil {
		h.runTimeout = server.FixedTimeout(0)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)

	r.Route("/pipelining", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(server.TimeoutMiddleware(h.runTimeout))
			r.Post("/chain", h.HandleChain)
			r.Post("/chain/{id}", h.HandleRunTemplate)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", h.HandleCreateTemplate)
			r.Get("/", h.HandleListTemplates)
			r.Get("/{id}", h.HandleGetTemplate)
			r.Put("/{id}", h.HandleUpdateTemplate)
			r.Delete("/{id}", h.HandleDeleteTemplate)
		})
	})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
