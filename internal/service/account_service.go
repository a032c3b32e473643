package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/notify"
	"github.com/google/uuid"
)

const accountLockTTL = 2 * time.Minute

// Alerter forwards operator notifications. notify.Notifier satisfies it.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// AccountDeletion reports what DeleteAccount did.
type AccountDeletion struct {
	UserID         uuid.UUID `json:"user_id"`
	ArchivePath    string    `json:"archive_path"`
	ArchivedEvents int64     `json:"archived_events"`
	DeletedEvents  int64     `json:"deleted_events"`
}

// AccountService removes a user's data after archiving it.
type AccountService struct {
	locks    domain.LockManager
	archiver domain.LedgerArchiver
	ledger   domain.LedgerStore
	audit    domain.AuditStore
	alerter  Alerter
	logger   *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	locks domain.LockManager,
	archiver domain.LedgerArchiver,
	ledger domain.LedgerStore,
	audit domain.AuditStore,
	alerter Alerter,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		locks:    locks,
		archiver: archiver,
		ledger:   ledger,
		audit:    audit,
		alerter:  alerter,
		logger:   logger,
	}
}

// DeleteAccount archives the user's ledger to object storage and then deletes
// it. The steps run under the account lock and stop at the first failure, so
// rows are never deleted without an archive.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) (AccountDeletion, error) {
	res := AccountDeletion{UserID: userID}

	unlock, err := s.locks.Acquire(ctx, "account:"+userID.String(), accountLockTTL)
	if err != nil {
		return res, fmt.Errorf("account_service: lock account %s: %w", userID, err)
	}
	defer unlock()

	path, archived, err := s.archiver.ArchiveLedger(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("account_service: archive ledger: %w", err)
	}
	res.ArchivePath = path
	res.ArchivedEvents = archived

	deleted, err := s.ledger.DeleteByUser(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("account_service: delete ledger: %w", err)
	}
	res.DeletedEvents = deleted

	if err := s.audit.Log(ctx, "account_deleted", map[string]any{
		"user_id":         userID.String(),
		"archive_path":    path,
		"archived_events": archived,
		"deleted_events":  deleted,
	}); err != nil {
		return res, fmt.Errorf("account_service: audit: %w", err)
	}

	msg := fmt.Sprintf("user %s: %d events archived to %s, %d deleted", userID, archived, path, deleted)
	if err := s.alerter.Notify(ctx, notify.EventAccountDeleted, "Account deleted", msg); err != nil {
		return res, fmt.Errorf("account_service: notify: %w", err)
	}

	s.logger.InfoContext(ctx, "account_service: account deleted",
		slog.String("user_id", userID.String()),
		slog.String("archive_path", path),
		slog.Int64("archived_events", archived),
		slog.Int64("deleted_events", deleted),
	)
	return res, nil
}
