package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	store *MockLedgerStore
	bus   *MockSignalBus
	audit *MockAuditStore
	svc   *LedgerService
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		store: new(MockLedgerStore),
		bus:   new(MockSignalBus),
		audit: new(MockAuditStore),
	}
	f.svc = NewLedgerService(f.store, f.bus, f.audit, quietLogger())
	f.svc.now = fixedNow
	return f
}

func buyEvent(userID uuid.UUID) domain.LedgerEvent {
	return domain.LedgerEvent{
		UserID:   userID,
		Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Kind:     domain.EventKindBuy,
		BTCDelta: decimal.RequireFromString("0.25"),
		FiatCost: decimal.NewFromInt(15000),
	}
}

func (f *ledgerFixture) expectChange(ctx context.Context, userID uuid.UUID, typ string) {
	channel := domain.ChannelLedgerPrefix + userID.String()
	f.audit.On("Log", ctx, "ledger_"+typ, mock.Anything).Return(nil).Once()
	f.bus.On("Publish", ctx, channel, mock.MatchedBy(func(payload []byte) bool {
		var evt domain.BusEvent
		if json.Unmarshal(payload, &evt) != nil || evt.Type != typ {
			return false
		}
		var change LedgerChange
		return json.Unmarshal(evt.Data, &change) == nil && change.UserID == userID
	})).Return(nil).Once()
	f.bus.On("StreamAppend", ctx, domain.StreamLedgerChanges, mock.Anything).Return(nil).Once()
}

func TestLedgerService_Create(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	userID := uuid.New()

	f.store.On("Create", ctx, mock.MatchedBy(func(ev domain.LedgerEvent) bool {
		return ev.ID != uuid.Nil && ev.UserID == userID && ev.CreatedAt.Equal(fixedNow())
	})).Return(nil)
	f.expectChange(ctx, userID, LedgerEventCreated)

	got, err := f.svc.Create(ctx, buyEvent(userID))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)
	f.store.AssertExpectations(t)
	f.bus.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestLedgerService_Create_Invalid(t *testing.T) {
	f := newLedgerFixture()

	ev := buyEvent(uuid.New())
	ev.Kind = domain.EventKindSell // positive delta on a sell

	_, err := f.svc.Create(context.Background(), ev)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	f.store.AssertNotCalled(t, "Create")
	f.bus.AssertNotCalled(t, "Publish")
}

func TestLedgerService_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	f.store.On("Create", ctx, mock.Anything).Return(domain.ErrAlreadyExists)

	_, err := f.svc.Create(ctx, buyEvent(uuid.New()))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	f.audit.AssertNotCalled(t, "Log")
}

func TestLedgerService_Update_KeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	userID := uuid.New()

	existing := buyEvent(userID)
	existing.ID = uuid.New()
	existing.CreatedAt = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	changed := existing
	changed.CreatedAt = time.Time{}
	changed.BTCDelta = decimal.RequireFromString("0.3")

	f.store.On("GetByID", ctx, userID, existing.ID).Return(existing, nil)
	f.store.On("Update", ctx, mock.MatchedBy(func(ev domain.LedgerEvent) bool {
		return ev.CreatedAt.Equal(existing.CreatedAt) && ev.BTCDelta.Equal(changed.BTCDelta)
	})).Return(nil)
	f.expectChange(ctx, userID, LedgerEventUpdated)

	got, err := f.svc.Update(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, existing.CreatedAt, got.CreatedAt)
	f.store.AssertExpectations(t)
}

func TestLedgerService_Update_Missing(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	ev := buyEvent(uuid.New())
	ev.ID = uuid.New()
	f.store.On("GetByID", ctx, ev.UserID, ev.ID).Return(domain.LedgerEvent{}, domain.ErrNotFound)

	_, err := f.svc.Update(ctx, ev)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.store.AssertNotCalled(t, "Update")
}

func TestLedgerService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	userID := uuid.New()

	existing := buyEvent(userID)
	existing.ID = uuid.New()
	f.store.On("GetByID", ctx, userID, existing.ID).Return(existing, nil)
	f.store.On("Delete", ctx, userID, existing.ID).Return(nil)
	f.expectChange(ctx, userID, LedgerEventDeleted)

	require.NoError(t, f.svc.Delete(ctx, userID, existing.ID))
	f.store.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestLedgerService_SideEffectFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	f.store.On("Create", ctx, mock.Anything).Return(nil)
	f.audit.On("Log", ctx, mock.Anything, mock.Anything).Return(errors.New("audit down"))
	f.bus.On("Publish", ctx, mock.Anything, mock.Anything).Return(errors.New("bus down"))
	f.bus.On("StreamAppend", ctx, mock.Anything, mock.Anything).Return(errors.New("bus down"))

	_, err := f.svc.Create(ctx, buyEvent(uuid.New()))
	assert.NoError(t, err)
}

func TestLedgerService_FetchEvents(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	userID := uuid.New()

	events := []domain.LedgerEvent{buyEvent(userID)}
	f.store.On("ListForValuation", ctx, userID).Return(events, nil)

	got, err := f.svc.FetchEvents(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, events, got)

	f.store.On("ListForValuation", ctx, mock.Anything).Return(nil, errors.New("timeout"))
	_, err = f.svc.FetchEvents(ctx, uuid.New())
	assert.ErrorContains(t, err, "timeout")
}

func TestLedgerService_RecentChanges(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	msgs := []domain.StreamMessage{{ID: "1-0", Payload: []byte(`{}`)}}
	f.bus.On("StreamRead", ctx, domain.StreamLedgerChanges, "0", 50).Return(msgs, nil)

	got, err := f.svc.RecentChanges(ctx, "0", 50)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}
