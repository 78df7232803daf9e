package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hollowaydev/fieldops/internal/model"
)

// TokenStore persists device token registrations. All authorization decisions
// live in the registrar; this layer only guarantees the storage invariants
// (one row per token value, atomic upsert, atomic delete).
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

const tokenCols = `id, token, user_id, device_info, created_at, updated_at`

func scanToken(scanner interface{ Scan(...any) error }) (*model.DeviceToken, error) {
	var dt model.DeviceToken
	err := scanner.Scan(&dt.ID, &dt.Token, &dt.UserID, &dt.DeviceInfo, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

// UpsertByToken registers a token for the given owner. A token already known
// to the store is re-pointed at the new owner in the same statement, so two
// concurrent registrations of the same value can never produce two rows. The
// row id survives conflicts, which keeps re-registration idempotent.
func (s *TokenStore) UpsertByToken(token string, userID int64, deviceInfo string) (*model.DeviceToken, error) {
	_, err := s.db.Exec(
		`INSERT INTO device_tokens (id, token, user_id, device_info)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET
		     user_id = excluded.user_id,
		     device_info = excluded.device_info,
		     updated_at = datetime('now')`,
		uuid.NewString(), token, userID, deviceInfo,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert device token: %w", err)
	}
	return s.getByToken(token)
}

func (s *TokenStore) getByToken(token string) (*model.DeviceToken, error) {
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM device_tokens WHERE token = ?`, token)
	dt, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device token: %w", err)
	}
	return dt, nil
}

func (s *TokenStore) GetByID(id string) (*model.DeviceToken, error) {
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM device_tokens WHERE id = ?`, id)
	dt, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device token by id: %w", err)
	}
	return dt, nil
}

func (s *TokenStore) ListByOwner(userID int64) ([]model.DeviceToken, error) {
	rows, err := s.db.Query(
		`SELECT `+tokenCols+` FROM device_tokens WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list device tokens by owner: %w", err)
	}
	defer rows.Close()
	return scanTokens(rows)
}

const tokenOwnerCols = `t.id, t.token, t.user_id, t.device_info, t.created_at, t.updated_at, u.name, u.email`

// ListByOwners resolves the registrations of exactly the given owners, joined
// with owner display attributes for dispatch reporting.
func (s *TokenStore) ListByOwners(userIDs []int64) ([]model.DeviceTokenWithOwner, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(userIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+tokenOwnerCols+`
		 FROM device_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.user_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list device tokens by owners: %w", err)
	}
	defer rows.Close()
	return scanTokensWithOwner(rows)
}

// ListAll returns every registration in the store, used for broadcast dispatch.
func (s *TokenStore) ListAll() ([]model.DeviceTokenWithOwner, error) {
	rows, err := s.db.Query(
		`SELECT ` + tokenOwnerCols + `
		 FROM device_tokens t JOIN users u ON u.id = t.user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all device tokens: %w", err)
	}
	defer rows.Close()
	return scanTokensWithOwner(rows)
}

func (s *TokenStore) DeleteByID(id string) error {
	_, err := s.db.Exec(`DELETE FROM device_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

// DeleteByOwner removes every registration owned by userID and reports how
// many rows went away. Zero is not an error.
func (s *TokenStore) DeleteByOwner(userID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM device_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete device tokens by owner: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func scanTokens(rows *sql.Rows) ([]model.DeviceToken, error) {
	var tokens []model.DeviceToken
	for rows.Next() {
		var dt model.DeviceToken
		if err := rows.Scan(&dt.ID, &dt.Token, &dt.UserID, &dt.DeviceInfo, &dt.CreatedAt, &dt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, dt)
	}
	return tokens, rows.Err()
}

func scanTokensWithOwner(rows *sql.Rows) ([]model.DeviceTokenWithOwner, error) {
	var tokens []model.DeviceTokenWithOwner
	for rows.Next() {
		var dt model.DeviceTokenWithOwner
		if err := rows.Scan(&dt.ID, &dt.Token, &dt.UserID, &dt.DeviceInfo, &dt.CreatedAt, &dt.UpdatedAt, &dt.OwnerName, &dt.OwnerEmail); err != nil {
			return nil, fmt.Errorf("scan device token with owner: %w", err)
		}
		tokens = append(tokens, dt)
	}
	return tokens, rows.Err()
}
