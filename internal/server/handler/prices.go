package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceService defines what the price handler needs from the service layer.
type PriceService interface {
	SpotPrice(ctx context.Context) (domain.SpotPrice, error)
	ListCloses(ctx context.Context, from, to domain.Month) ([]domain.MonthlyClose, error)
	RecordClose(ctx context.Context, c domain.MonthlyClose) (domain.MonthlyClose, error)
}

// PriceHandler serves the spot price and month-end closes.
type PriceHandler struct {
	prices PriceService
	now    func() time.Time
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, now: time.Now, logger: logHandler(logger, "prices")}
}

type spotResponse struct {
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"asOf"`
	Source string          `json:"source"`
}

type closeResponse struct {
	Month     domain.Month    `json:"monthKey"`
	MonthEnd  string          `json:"monthEndDate"`
	Close     decimal.Decimal `json:"close"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type listClosesResponse struct {
	From   domain.Month    `json:"from"`
	To     domain.Month    `json:"to"`
	Closes []closeResponse `json:"closes"`
}

type recordCloseRequest struct {
	Close  decimal.Decimal `json:"close"`
	Source string          `json:"source,omitempty"`
}

func toCloseResponse(c domain.MonthlyClose) closeResponse {
	return closeResponse{
		Month:     c.Month,
		MonthEnd:  c.MonthEnd().Format(time.DateOnly),
		Close:     c.Close,
		Source:    c.Source,
		UpdatedAt: c.UpdatedAt,
	}
}

// GetSpot returns the latest spot price.
// GET /api/prices/spot
func (h *PriceHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	spot, err := h.prices.SpotPrice(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to get spot price", err)
		return
	}
	writeJSON(w, http.StatusOK, spotResponse{Price: spot.PriceUSD, AsOf: spot.AsOf, Source: spot.Source})
}

// ListCloses returns closes between two months inclusive. Both default to
// the twelve months before the current one.
// GET /api/prices/closes?from=2025-01&to=2025-12
func (h *PriceHandler) ListCloses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := domain.MonthOf(h.now()).Prev()
	from := to.AddMonths(-11)

	if v := q.Get("from"); v != "" {
		m, err := domain.ParseMonth(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from month")
			return
		}
		from = m
	}
	if v := q.Get("to"); v != "" {
		m, err := domain.ParseMonth(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to month")
			return
		}
		to = m
	}

	closes, err := h.prices.ListCloses(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list closes", err)
		return
	}

	out := make([]closeResponse, 0, len(closes))
	for _, c := range closes {
		out = append(out, toCloseResponse(c))
	}
	writeJSON(w, http.StatusOK, listClosesResponse{From: from, To: to, Closes: out})
}

// RecordClose sets the close of a finished month.
// PUT /api/prices/closes/{month}
func (h *PriceHandler) RecordClose(w http.ResponseWriter, r *http.Request) {
	m, err := domain.ParseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	var req recordCloseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.prices.RecordClose(r.Context(), domain.MonthlyClose{Month: m, Close: req.Close, Source: req.Source})
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to record close", err)
		return
	}
	writeJSON(w, http.StatusOK, toCloseResponse(c))
}
