// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package gamification maintains scan streaks and awards badges.
package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
)

const (
	BadgeStreak3  = "streak-3"
	BadgeStreak7  = "streak-7"
	BadgeStreak30 = "streak-30"
)

// badgeThresholds maps streak lengths to the badge they unlock.
var badgeThresholds = []struct {
	days  int64
	badge string
}{
	{3, BadgeStreak3},
	{7, BadgeStreak7},
	{30, BadgeStreak30},
}

// Service updates a user's streak and badge set after each scan.
type Service struct {
	repo *repository.Repository
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Progress is the streak state after recording a scan.
type Progress struct {
	StreakCount int64    `json:"streakCount"`
	Badges      []string `json:"badges"`
	NewBadges   []string `json:"newBadges"`
}

// RecordScan advances the streak for a scan happening at scanTime. Days are
// compared in UTC. A second scan on the same day keeps the streak, a scan on
// the following day extends it, anything else resets it to one.
func (s *Service) RecordScan(ctx context.Context, user *models.User, scanTime time.Time) (*Progress, error) {
	streak := NextStreak(user.StreakCount, user.LastScanAt, scanTime)

	badges := user.Badges
	var newBadges []string
	for _, t := range badgeThresholds {
		if streak >= t.days && !badges.Contains(t.badge) {
			badges = append(badges, t.badge)
			newBadges = append(newBadges, t.badge)
		}
	}

	if err := s.repo.UpdateUserGamification(ctx, user.ID, streak, scanTime, badges); err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	if len(newBadges) > 0 {
		slog.Info("badges_awarded", "user_id", user.ID, "badges", newBadges)
	}

	user.StreakCount = streak
	user.LastScanAt = &scanTime
	user.Badges = badges

	return &Progress{
		StreakCount: streak,
		Badges:      badges,
		NewBadges:   newBadges,
	}, nil
}

// NextStreak computes the streak value for a scan at now given the previous
// scan time.
func NextStreak(current int64, lastScanAt *time.Time, now time.Time) int64 {
	if lastScanAt == nil || current < 1 {
		return 1
	}
	today := truncateDay(now)
	lastDay := truncateDay(*lastScanAt)

	switch today.Sub(lastDay) {
	case 0:
		return current
	case 24 * time.Hour:
		return current + 1
	default:
		return 1
	}
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
