// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
)

// CreateRefreshToken inserts a ledger entry for an issued refresh token.
func (r *Repository) CreateRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES (?, ?, ?)`,
		userID, token, expiresAt)
	return err
}

// GetRefreshToken retrieves a ledger entry by token string. Returns
// ErrNotFound for revoked or never-issued tokens.
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var entry models.RefreshToken
	err := r.db.GetContext(ctx, &entry,
		`SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens WHERE token = ?`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &entry, nil
}

// DeleteRefreshToken revokes a refresh token. Deleting an absent token is
// not an error, so logout stays idempotent.
func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	return err
}

// DeleteExpiredRefreshTokens purges ledger entries past their expiry.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now())
	return err
}
