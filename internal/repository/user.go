// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
)

// userColumns is the default selection for user reads. The password hash and
// the one-time code are secrets and only included by the dedicated readers.
const userColumns = `id, email, name, dob, consent, is_active, plan, streak_count, last_scan_at, badges, created_at, updated_at`

// CreateUser inserts a new user and sets its ID. The unique index on email
// is the only guard against concurrent registration races.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, is_active, otp, otp_expires, plan, badges)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.IsActive, user.OTP, user.OTPExpires, user.Plan, user.Badges)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID, secrets excluded.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, secrets excluded.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserForLogin retrieves a user by email including the password hash.
func (r *Repository) GetUserForLogin(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserWithOTP retrieves a user by ID including the one-time code fields.
func (r *Repository) GetUserWithOTP(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+`, otp, otp_expires FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// SetUserOTP stores a fresh one-time code and its expiry on the user.
func (r *Repository) SetUserOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return r.updateUser(ctx, id,
		`UPDATE users SET otp = ?, otp_expires = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		code, expiresAt, id)
}

// ActivateUser marks the user active and consumes the one-time code.
func (r *Repository) ActivateUser(ctx context.Context, id int64) error {
	return r.updateUser(ctx, id,
		`UPDATE users SET is_active = 1, otp = NULL, otp_expires = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id)
}

// UpdateUserPassword replaces the password hash and consumes the one-time code.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return r.updateUser(ctx, id,
		`UPDATE users SET password_hash = ?, otp = NULL, otp_expires = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
}

// SetUserPlan sets the subscription tier.
func (r *Repository) SetUserPlan(ctx context.Context, id int64, plan string) error {
	return r.updateUser(ctx, id,
		`UPDATE users SET plan = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		plan, id)
}

// ProfileUpdate holds the optional profile-completion fields. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Name    *string
	DOB     *time.Time
	Consent *bool
}

// UpdateUserProfile applies a partial profile update.
func (r *Repository) UpdateUserProfile(ctx context.Context, id int64, update ProfileUpdate) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.DOB != nil {
		sets = append(sets, "dob = ?")
		args = append(args, *update.DOB)
	}
	if update.Consent != nil {
		sets = append(sets, "consent = ?")
		args = append(args, *update.Consent)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = ?`, strings.Join(sets, ", "))
	return r.updateUser(ctx, id, query, args...)
}

// UpdateUserGamification persists the streak counter, last activity instant
// and the earned badge set.
func (r *Repository) UpdateUserGamification(ctx context.Context, id int64, streakCount int64, lastScanAt time.Time, badges models.BadgeList) error {
	return r.updateUser(ctx, id,
		`UPDATE users SET streak_count = ?, last_scan_at = ?, badges = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		streakCount, lastScanAt, badges, id)
}

func (r *Repository) updateUser(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
