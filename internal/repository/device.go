// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
)

// CreateDevice records a login fingerprint.
func (r *Repository) CreateDevice(ctx context.Context, userID int64, ip, userAgent string) error {
	if ip == "" {
		ip = "unknown"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (user_id, ip, user_agent) VALUES (?, ?, ?)`,
		userID, ip, userAgent)
	return err
}

// ListUserDevices returns a user's login fingerprints, newest first.
func (r *Repository) ListUserDevices(ctx context.Context, userID int64) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.SelectContext(ctx, &devices,
		`SELECT id, user_id, ip, user_agent, created_at FROM devices WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return devices, nil
}
