package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
)

// SpotReader returns the latest spot price.
type SpotReader interface {
	SpotPrice(ctx context.Context) (domain.SpotPrice, error)
}

// StatusHandler serves the backend mode and spot freshness.
type StatusHandler struct {
	mode       string
	spot       SpotReader
	staleAfter time.Duration
	startedAt  time.Time
	now        func() time.Time
	logger     *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, spot SpotReader, staleAfter time.Duration, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:       mode,
		spot:       spot,
		staleAfter: staleAfter,
		startedAt:  time.Now().UTC(),
		now:        time.Now,
		logger:     logHandler(logger, "status"),
	}
}

type spotStatus struct {
	Price      string `json:"price"`
	AsOf       string `json:"as_of"`
	Source     string `json:"source"`
	AgeSeconds int64  `json:"age_seconds"`
	Stale      bool   `json:"stale"`
}

// GetStatus responds with the mode, uptime and spot freshness.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(now.Sub(h.startedAt).Seconds()),
		"spot":           nil,
	}

	spot, err := h.spot.SpotPrice(r.Context())
	if err != nil {
		h.logger.DebugContext(r.Context(), "handler: spot unavailable", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, resp)
		return
	}

	age := spot.Age(now)
	resp["spot"] = spotStatus{
		Price:      spot.PriceUSD.String(),
		AsOf:       spot.AsOf.UTC().Format(time.RFC3339),
		Source:     spot.Source,
		AgeSeconds: int64(age.Seconds()),
		Stale:      h.staleAfter > 0 && age > h.staleAfter,
	}
	writeJSON(w, http.StatusOK, resp)
}
