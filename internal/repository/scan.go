// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
)

// CreateScan inserts a scan record and sets its ID and creation instant.
func (r *Repository) CreateScan(ctx context.Context, scan *models.Scan) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO scans (user_id, image_path, audio_path, ml_result, wellness_score)
		 VALUES (?, ?, ?, ?, ?)`,
		scan.UserID, scan.ImagePath, scan.AudioPath, scan.MLResult, scan.WellnessScore)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	scan.ID = id
	return r.db.GetContext(ctx, &scan.CreatedAt,
		`SELECT created_at FROM scans WHERE id = ?`, id)
}

// ListUserScans returns a user's scan history, newest first.
func (r *Repository) ListUserScans(ctx context.Context, userID int64, limit int) ([]models.Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	var scans []models.Scan
	err := r.db.SelectContext(ctx, &scans,
		`SELECT id, user_id, image_path, audio_path, ml_result, wellness_score, created_at
		 FROM scans WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return scans, nil
}
