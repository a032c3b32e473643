package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/satfolio/internal/service"
	"github.com/google/uuid"
)

// AccountService defines what the account handler needs from the service layer.
type AccountService interface {
	DeleteAccount(ctx context.Context, userID uuid.UUID) (service.AccountDeletion, error)
}

// AccountHandler serves account-level operations.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logHandler(logger, "account")}
}

// DeleteAccount archives and removes all of a user's ledger data.
// DELETE /api/users/{userID}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.accounts.DeleteAccount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to delete account", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
