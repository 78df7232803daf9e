package notify

import (
	"log/slog"
	"strings"

	"github.com/hollowaydev/fieldops/internal/fault"
	"github.com/hollowaydev/fieldops/internal/model"
	"github.com/hollowaydev/fieldops/internal/store"
)

// AccountResolver looks up the account a registration belongs to. Satisfied by
// store.UserStore; returns (nil, nil) for unknown accounts.
type AccountResolver interface {
	GetByID(id int64) (*model.User, error)
}

// Registrar owns the lifecycle of device token registrations and enforces the
// ownership rules. The store underneath has no authorization logic.
type Registrar struct {
	tokens   *store.TokenStore
	accounts AccountResolver
	logger   *slog.Logger
}

func NewRegistrar(tokens *store.TokenStore, accounts AccountResolver, logger *slog.Logger) *Registrar {
	return &Registrar{tokens: tokens, accounts: accounts, logger: logger}
}

// Register stores or refreshes a token for the caller. Safe to call repeatedly
// with the same arguments: calls converge to one row with a fresh updated_at.
// A token previously registered by another account is silently re-pointed at
// the caller (device hand-off).
func (r *Registrar) Register(callerID int64, token, deviceInfo string) (*model.DeviceToken, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fault.New(fault.Validation, "token is required")
	}

	owner, err := r.accounts.GetByID(callerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fault.New(fault.NotFound, "account %d not found", callerID)
	}

	dt, err := r.tokens.UpsertByToken(token, callerID, deviceInfo)
	if err != nil {
		return nil, err
	}

	r.logger.Info("token registered",
		"registration_id", dt.ID,
		"user_id", callerID,
	)
	return dt, nil
}

// ListMine returns every registration owned by the caller.
func (r *Registrar) ListMine(callerID int64) ([]model.DeviceToken, error) {
	return r.tokens.ListByOwner(callerID)
}

// DeleteOne removes a single registration. Only its owner or an administrator
// may delete it.
func (r *Registrar) DeleteOne(callerID int64, callerRole, id string) error {
	dt, err := r.tokens.GetByID(id)
	if err != nil {
		return err
	}
	if dt == nil {
		return fault.New(fault.NotFound, "registration %q not found", id)
	}
	if callerRole != model.RoleAdmin && dt.UserID != callerID {
		return fault.New(fault.Forbidden, "not your registration")
	}

	if err := r.tokens.DeleteByID(id); err != nil {
		return err
	}
	r.logger.Info("token deleted", "registration_id", id, "user_id", dt.UserID)
	return nil
}

// DeleteAllMine removes every registration owned by the caller and returns the
// number removed. Zero is a valid result, not an error.
func (r *Registrar) DeleteAllMine(callerID int64) (int64, error) {
	n, err := r.tokens.DeleteByOwner(callerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("tokens deleted", "user_id", callerID, "count", n)
	}
	return n, nil
}
