// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subscription plans.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// User is the single account record. An inactive user is a pending
// registration; activation flips IsActive and clears the one-time code.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         *string    `db:"name" json:"name,omitempty"`
	DOB          *time.Time `db:"dob" json:"dob,omitempty"`
	Consent      bool       `db:"consent" json:"consent"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	OTP          *string    `db:"otp" json:"-"`
	OTPExpires   *time.Time `db:"otp_expires" json:"-"`
	Plan         string     `db:"plan" json:"plan"`
	StreakCount  int64      `db:"streak_count" json:"streak_count"`
	LastScanAt   *time.Time `db:"last_scan_at" json:"last_scan_at,omitempty"`
	Badges       BadgeList  `db:"badges" json:"badges"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserSummary is the public view of a user returned on login and /me.
type UserSummary struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	Plan  string  `json:"plan"`
}

// Summary returns the public view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Plan:  u.Plan,
	}
}

// BadgeList is a set of earned badge identifiers stored as a JSON array.
type BadgeList []string

// Contains reports whether the badge has already been earned.
func (b BadgeList) Contains(badge string) bool {
	for _, id := range b {
		if id == badge {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (b BadgeList) Value() (driver.Value, error) {
	if b == nil {
		b = BadgeList{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (b *BadgeList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = BadgeList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), b)
	case []byte:
		return json.Unmarshal(v, b)
	default:
		return fmt.Errorf("cannot scan %T into BadgeList", src)
	}
}
