// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package scan stores uploaded scan media, runs the mocked inference and
// assembles the wellness report.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
	"codeberg.org/oliverandrich/mindmirror/internal/services/gamification"
	"github.com/google/uuid"
)

// ErrNoInput is returned when a scan carries neither image nor audio.
var ErrNoInput = errors.New("provide image or audio")

var baseSuggestions = []string{
	"Take 3 deep breaths for 2 minutes",
	"Short 10-minute walk",
	"Drink a glass of water",
}

var premiumSuggestions = []string{
	"Guided 10-minute breathing session (audio)",
	"Personalized micro-workout for energy",
	"Sleep hygiene plan for the week",
}

// Service processes wellness scans.
type Service struct {
	repo      *repository.Repository
	gamify    *gamification.Service
	uploadDir string
}

func NewService(repo *repository.Repository, gamify *gamification.Service, uploadDir string) *Service {
	return &Service{repo: repo, gamify: gamify, uploadDir: uploadDir}
}

// Upload is one incoming media blob.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Result is the scan response.
type Result struct { //nolint:govet // fieldalignment: response shape over packing
	ScanID        int64                  `json:"scanId"`
	Timestamp     time.Time              `json:"timestamp"`
	MLResult      models.MLResult        `json:"mlResult"`
	WellnessScore int64                  `json:"wellnessScore"`
	Suggestions   []string               `json:"suggestions"`
	Gamification  *gamification.Progress `json:"gamification"`
	Premium       bool                   `json:"premium"`
}

// Process stores the uploads, fabricates the inference result, persists the
// scan and advances the user's streak. At least one of image and audio must
// be present.
func (s *Service) Process(ctx context.Context, user *models.User, image, audio *Upload) (*Result, error) {
	if image == nil && audio == nil {
		return nil, ErrNoInput
	}

	record := &models.Scan{UserID: user.ID}

	if image != nil {
		name, err := s.saveUpload(image)
		if err != nil {
			return nil, err
		}
		record.ImagePath = &name
		record.MLResult.Face = mockFace()
	}
	if audio != nil {
		name, err := s.saveUpload(audio)
		if err != nil {
			return nil, err
		}
		record.AudioPath = &name
		record.MLResult.Voice = mockVoice()
	}

	record.WellnessScore = WellnessScore(record.MLResult)

	if err := s.repo.CreateScan(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store scan: %w", err)
	}

	progress, err := s.gamify.RecordScan(ctx, user, time.Now())
	if err != nil {
		return nil, err
	}

	slog.Info("scan_processed", "user_id", user.ID, "scan_id", record.ID, "score", record.WellnessScore)

	result := &Result{
		ScanID:        record.ID,
		Timestamp:     record.CreatedAt,
		MLResult:      record.MLResult,
		WellnessScore: record.WellnessScore,
		Suggestions:   baseSuggestions,
		Gamification:  progress,
		Premium:       user.Plan == models.PlanPremium,
	}
	if result.Premium {
		result.Suggestions = append(append([]string{}, baseSuggestions...), premiumSuggestions...)
	}
	return result, nil
}

// History returns the user's most recent scans.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.Scan, error) {
	return s.repo.ListUserScans(ctx, userID, limit)
}

// saveUpload writes a blob under the upload dir with a random name,
// preserving the original extension. Only the basename is stored.
func (s *Service) saveUpload(u *Upload) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	name := uuid.NewString() + filepath.Ext(u.Filename)
	f, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, u.Content); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return name, nil
}

// WellnessScore averages the stress signals of the present modalities and
// maps them onto a 0..100 scale, higher is better.
func WellnessScore(ml models.MLResult) int64 {
	var sum float64
	var count int
	if ml.Face != nil {
		sum += ml.Face.StressScore
		count++
	}
	if ml.Voice != nil {
		sum += ml.Voice.StressIndicator * 100
		count++
	}
	if count == 0 {
		return 100
	}
	score := math.Round(100 - sum/float64(count))
	if score < 0 {
		return 0
	}
	return int64(score)
}

// Mocked inference, stands in for the real models.

func mockFace() *models.FaceResult {
	return &models.FaceResult{
		Mood:         "neutral",
		StressScore:  float64(rand.IntN(50)),
		FatigueScore: float64(rand.IntN(40)),
		Confidence:   0.8,
	}
}

func mockVoice() *models.VoiceResult {
	return &models.VoiceResult{
		Emotion:         "neutral",
		StressIndicator: rand.Float64() * 0.6,
		Energy:          rand.Float64(),
		Confidence:      0.75,
	}
}
