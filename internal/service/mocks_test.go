package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
}

// MockSpotCache is a mock implementation of domain.SpotCache.
type MockSpotCache struct {
	mock.Mock
}

func (m *MockSpotCache) SetSpot(ctx context.Context, s domain.SpotPrice) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSpotCache) GetSpot(ctx context.Context) (domain.SpotPrice, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SpotPrice), args.Error(1)
}

func (m *MockSpotCache) SetMonthLast(ctx context.Context, mo domain.Month, s domain.SpotPrice) error {
	return m.Called(ctx, mo, s).Error(0)
}

func (m *MockSpotCache) GetMonthLast(ctx context.Context, mo domain.Month) (domain.SpotPrice, error) {
	args := m.Called(ctx, mo)
	return args.Get(0).(domain.SpotPrice), args.Error(1)
}

// MockSpotStore is a mock implementation of domain.SpotPriceStore.
type MockSpotStore struct {
	mock.Mock
}

func (m *MockSpotStore) Upsert(ctx context.Context, s domain.SpotPrice) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSpotStore) Latest(ctx context.Context) (domain.SpotPrice, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SpotPrice), args.Error(1)
}

// MockCloseStore is a mock implementation of domain.MonthlyCloseStore.
type MockCloseStore struct {
	mock.Mock
}

func (m *MockCloseStore) Upsert(ctx context.Context, c domain.MonthlyClose) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCloseStore) UpsertBatch(ctx context.Context, closes []domain.MonthlyClose) error {
	return m.Called(ctx, closes).Error(0)
}

func (m *MockCloseStore) Get(ctx context.Context, mo domain.Month) (domain.MonthlyClose, error) {
	args := m.Called(ctx, mo)
	return args.Get(0).(domain.MonthlyClose), args.Error(1)
}

func (m *MockCloseStore) ListRange(ctx context.Context, from, to domain.Month) ([]domain.MonthlyClose, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyClose), args.Error(1)
}

// MockSignalBus is a mock implementation of domain.SignalBus.
type MockSignalBus struct {
	mock.Mock
}

func (m *MockSignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return m.Called(ctx, channel, payload).Error(0)
}

func (m *MockSignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []byte), args.Error(1)
}

func (m *MockSignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	return m.Called(ctx, stream, payload).Error(0)
}

func (m *MockSignalBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, lastID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

// MockLedgerStore is a mock implementation of domain.LedgerStore.
type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Create(ctx context.Context, ev domain.LedgerEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockLedgerStore) Update(ctx context.Context, ev domain.LedgerEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockLedgerStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockLedgerStore) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.LedgerEvent, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(domain.LedgerEvent), args.Error(1)
}

func (m *MockLedgerStore) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEvent), args.Error(1)
}

func (m *MockLedgerStore) ListForValuation(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEvent), args.Error(1)
}

func (m *MockLedgerStore) ListAll(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEvent), args.Error(1)
}

func (m *MockLedgerStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditStore is a mock implementation of domain.AuditStore.
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	return m.Called(ctx, event, detail).Error(0)
}

func (m *MockAuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

// MockLockManager is a mock implementation of domain.LockManager.
type MockLockManager struct {
	mock.Mock
	unlocked int
}

func (m *MockLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.unlocked++ }, nil
}

// MockArchiver is a mock implementation of domain.LedgerArchiver.
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) ArchiveLedger(ctx context.Context, userID uuid.UUID) (string, int64, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

// MockAlerter is a mock implementation of Alerter.
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Notify(ctx context.Context, event, title, message string) error {
	return m.Called(ctx, event, title, message).Error(0)
}
