package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService defines what the ledger handler needs from the service layer.
type LedgerService interface {
	Create(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error)
	Update(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.LedgerEvent, error)
	RecentChanges(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error)
}

// LedgerHandler serves a user's ledger events.
type LedgerHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(ledger LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logHandler(logger, "ledger")}
}

// eventRequest is the body of create and update calls. Decimal fields accept
// JSON strings or numbers.
type eventRequest struct {
	Date        string           `json:"date"`
	Kind        string           `json:"kind"`
	BTCDelta    decimal.Decimal  `json:"btcDelta"`
	FiatCost    *decimal.Decimal `json:"fiatCost,omitempty"`
	PricePerBTC *decimal.Decimal `json:"pricePerBtc,omitempty"`
	Note        string           `json:"note,omitempty"`
}

type eventResponse struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	Date        time.Time        `json:"date"`
	Month       domain.Month     `json:"monthKey"`
	Kind        domain.EventKind `json:"kind"`
	BTCDelta    decimal.Decimal  `json:"btcDelta"`
	FiatCost    decimal.Decimal  `json:"fiatCost"`
	PricePerBTC *decimal.Decimal `json:"pricePerBtc,omitempty"`
	Note        string           `json:"note,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type changeResponse struct {
	ID     string          `json:"id"`
	Change json.RawMessage `json:"change"`
}

type listChangesResponse struct {
	Changes []changeResponse `json:"changes"`
	Last    string           `json:"last"`
}

func toEventResponse(ev domain.LedgerEvent) eventResponse {
	return eventResponse{
		ID:          ev.ID,
		UserID:      ev.UserID,
		Date:        ev.Date,
		Month:       ev.Month(),
		Kind:        ev.Kind,
		BTCDelta:    ev.BTCDelta,
		FiatCost:    ev.FiatCost,
		PricePerBTC: ev.PricePerBTC,
		Note:        ev.Note,
		CreatedAt:   ev.CreatedAt,
	}
}

// toEvent converts a request body into a domain event for userID.
func (req eventRequest) toEvent(userID uuid.UUID) (domain.LedgerEvent, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return domain.LedgerEvent{}, err
	}
	kind, err := domain.ParseEventKind(req.Kind)
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	ev := domain.LedgerEvent{
		UserID:      userID,
		Date:        date,
		Kind:        kind,
		BTCDelta:    req.BTCDelta,
		FiatCost:    decimal.Zero,
		PricePerBTC: req.PricePerBTC,
		Note:        req.Note,
	}
	if req.FiatCost != nil {
		ev.FiatCost = *req.FiatCost
	}
	return ev, nil
}

// ListEvents returns a page of the user's events.
// GET /api/users/{userID}/events?since=2024-01-01&until=2024-12-31&limit=50&offset=0
func (h *LedgerHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.ledger.List(r.Context(), userID, opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list events", err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: out})
}

// CreateEvent adds an event to the user's ledger.
// POST /api/users/{userID}/events
func (h *LedgerHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := req.toEvent(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.ledger.Create(r.Context(), ev)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

// UpdateEvent replaces one event of the user.
// PUT /api/users/{userID}/events/{id}
func (h *LedgerHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := req.toEvent(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev.ID = id

	updated, err := h.ledger.Update(r.Context(), ev)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to update event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(updated))
}

// DeleteEvent removes one event of the user.
// DELETE /api/users/{userID}/events/{id}
func (h *LedgerHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, h.logger, "failed to delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChanges replays the ledger change stream after a stream ID, so a client
// that missed pub/sub messages can catch up.
// GET /api/ledger/changes?after=0&limit=100
func (h *LedgerHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after := q.Get("after")
	if after == "" {
		after = "0"
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 1000)
	}

	msgs, err := h.ledger.RecentChanges(r.Context(), after, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to read ledger changes", err)
		return
	}

	resp := listChangesResponse{Changes: make([]changeResponse, 0, len(msgs)), Last: after}
	for _, m := range msgs {
		if !json.Valid(m.Payload) {
			continue
		}
		resp.Changes = append(resp.Changes, changeResponse{ID: m.ID, Change: json.RawMessage(m.Payload)})
		resp.Last = m.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
