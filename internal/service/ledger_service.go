package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
)

// Ledger change types published on the bus and the ledger stream.
const (
	LedgerEventCreated = "event_created"
	LedgerEventUpdated = "event_updated"
	LedgerEventDeleted = "event_deleted"
)

// LedgerChange is the payload of a ledger bus message.
type LedgerChange struct {
	Type    string    `json:"type"`
	UserID  uuid.UUID `json:"user_id"`
	EventID uuid.UUID `json:"event_id"`
	Kind    string    `json:"kind,omitempty"`
	Month   string    `json:"month,omitempty"`
}

// LedgerService manages a user's ledger events. Every mutation is audited,
// published on the user's ledger channel and appended to the ledger stream.
type LedgerService struct {
	store  domain.LedgerStore
	bus    domain.SignalBus
	audit  domain.AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewLedgerService creates a LedgerService with all required dependencies.
func NewLedgerService(
	store domain.LedgerStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		store:  store,
		bus:    bus,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates and stores a new event. A zero ID is replaced with a
// fresh one.
func (s *LedgerService) Create(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.Date = ev.Date.UTC()
	ev.CreatedAt = s.now().UTC()

	if err := ev.Validate(); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("ledger_service: %w", err)
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("ledger_service: create event: %w", err)
	}

	s.changed(ctx, LedgerEventCreated, ev)
	return ev, nil
}

// Update replaces an existing event. The original creation time is kept so
// same-day ordering does not change.
func (s *LedgerService) Update(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	existing, err := s.store.GetByID(ctx, ev.UserID, ev.ID)
	if err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("ledger_service: load event %s: %w", ev.ID, err)
	}
	ev.Date = ev.Date.UTC()
	ev.CreatedAt = existing.CreatedAt

	if err := ev.Validate(); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("ledger_service: %w", err)
	}
	if err := s.store.Update(ctx, ev); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("ledger_service: update event: %w", err)
	}

	s.changed(ctx, LedgerEventUpdated, ev)
	return ev, nil
}

// Delete removes a single event of the user.
func (s *LedgerService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("ledger_service: load event %s: %w", id, err)
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("ledger_service: delete event: %w", err)
	}

	s.changed(ctx, LedgerEventDeleted, existing)
	return nil
}

// Get returns one event of the user.
func (s *LedgerService) Get(ctx context.Context, userID, id uuid.UUID) (domain.LedgerEvent, error) {
	ev, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("ledger_service: get event %s: %w", id, err)
	}
	return ev, nil
}

// List returns a page of the user's events in date order.
func (s *LedgerService) List(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	events, err := s.store.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: list events: %w", err)
	}
	return events, nil
}

// FetchEvents returns the buy, sell and interest events of the user in
// ascending date order.
func (s *LedgerService) FetchEvents(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	events, err := s.store.ListForValuation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: list valuation events: %w", err)
	}
	return events, nil
}

// RecentChanges reads ledger changes from the durable stream after lastID.
// Use "0" to read from the beginning.
func (s *LedgerService) RecentChanges(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	msgs, err := s.bus.StreamRead(ctx, domain.StreamLedgerChanges, lastID, count)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: read changes: %w", err)
	}
	return msgs, nil
}

// changed audits and announces a mutation. Bus and audit failures are
// logged; the mutation itself has already succeeded.
func (s *LedgerService) changed(ctx context.Context, typ string, ev domain.LedgerEvent) {
	change := LedgerChange{
		Type:    typ,
		UserID:  ev.UserID,
		EventID: ev.ID,
		Kind:    string(ev.Kind),
		Month:   ev.Month().String(),
	}
	logger := s.logger.With(
		slog.String("type", typ),
		slog.String("user_id", ev.UserID.String()),
		slog.String("event_id", ev.ID.String()),
	)

	if auditErr := s.audit.Log(ctx, "ledger_"+typ, map[string]any{
		"user_id":   ev.UserID.String(),
		"event_id":  ev.ID.String(),
		"kind":      string(ev.Kind),
		"btc_delta": ev.BTCDelta.String(),
	}); auditErr != nil {
		logger.WarnContext(ctx, "ledger_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}

	channel := domain.ChannelLedgerPrefix + ev.UserID.String()
	evt, err := domain.NewBusEvent(channel, typ, change, s.now().UTC())
	if err != nil {
		logger.WarnContext(ctx, "ledger_service: encode event failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if pubErr := s.bus.Publish(ctx, channel, evt); pubErr != nil {
		logger.WarnContext(ctx, "ledger_service: publish event failed",
			slog.String("error", pubErr.Error()),
		)
	}
	if streamErr := s.bus.StreamAppend(ctx, domain.StreamLedgerChanges, evt); streamErr != nil {
		logger.WarnContext(ctx, "ledger_service: stream append failed",
			slog.String("error", streamErr.Error()),
		)
	}

	logger.InfoContext(ctx, "ledger_service: ledger changed")
}
