package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
)

// ValuationService defines what the valuation handler needs from the
// service layer.
type ValuationService interface {
	Snapshots(ctx context.Context, userID uuid.UUID, tr domain.TimeRange, policy string) ([]domain.MonthlySnapshot, error)
	Summary(ctx context.Context, userID uuid.UUID, tr domain.TimeRange, policy string) (domain.PortfolioSummary, error)
	DefaultRange() domain.TimeRange
}

// ValuationHandler serves monthly snapshots and portfolio summaries.
type ValuationHandler struct {
	valuation ValuationService
	logger    *slog.Logger
}

// NewValuationHandler creates a ValuationHandler.
func NewValuationHandler(valuation ValuationService, logger *slog.Logger) *ValuationHandler {
	return &ValuationHandler{valuation: valuation, logger: logHandler(logger, "valuation")}
}

type snapshotsResponse struct {
	UserID    uuid.UUID                `json:"userId"`
	Range     domain.TimeRange         `json:"range"`
	Snapshots []domain.MonthlySnapshot `json:"snapshots"`
}

type summaryResponse struct {
	UserID  uuid.UUID               `json:"userId"`
	Range   domain.TimeRange        `json:"range"`
	Summary domain.PortfolioSummary `json:"summary"`
}

// parseQuery reads the user, range and optional cost basis policy.
func (h *ValuationHandler) parseQuery(r *http.Request) (uuid.UUID, domain.TimeRange, string, error) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		return uuid.Nil, "", "", err
	}

	q := r.URL.Query()
	tr := h.valuation.DefaultRange()
	if v := q.Get("range"); v != "" {
		if tr, err = domain.ParseTimeRange(v); err != nil {
			return uuid.Nil, "", "", err
		}
	}
	return userID, tr, q.Get("policy"), nil
}

// GetSnapshots returns one snapshot per month of the range.
// GET /api/users/{userID}/snapshots?range=1Y&policy=fifo
func (h *ValuationHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, tr, policy, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snaps, err := h.valuation.Snapshots(r.Context(), userID, tr, policy)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to compute snapshots", err)
		return
	}
	if snaps == nil {
		snaps = []domain.MonthlySnapshot{}
	}

	writeJSON(w, http.StatusOK, snapshotsResponse{UserID: userID, Range: tr, Snapshots: snaps})
}

// GetSummary returns headline figures for the range.
// GET /api/users/{userID}/summary?range=ALL
func (h *ValuationHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, tr, policy, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sum, err := h.valuation.Summary(r.Context(), userID, tr, policy)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to compute summary", err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{UserID: userID, Range: tr, Summary: sum})
}
