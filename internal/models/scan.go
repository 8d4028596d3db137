// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Scan is a stored wellness scan with its inference result.
type Scan struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	ImagePath     *string   `db:"image_path" json:"image_path,omitempty"`
	AudioPath     *string   `db:"audio_path" json:"audio_path,omitempty"`
	MLResult      MLResult  `db:"ml_result" json:"ml_result"`
	WellnessScore int64     `db:"wellness_score" json:"wellness_score"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// FaceResult is the mocked face-analysis output.
type FaceResult struct {
	Mood         string  `json:"mood"`
	StressScore  float64 `json:"stress_score"`
	FatigueScore float64 `json:"fatigue_score"`
	Confidence   float64 `json:"confidence"`
}

// VoiceResult is the mocked voice-analysis output.
type VoiceResult struct {
	Emotion         string  `json:"emotion"`
	StressIndicator float64 `json:"stress_indicator"`
	Energy          float64 `json:"energy"`
	Confidence      float64 `json:"confidence"`
}

// MLResult holds the per-modality inference outputs, stored as JSON.
type MLResult struct {
	Face  *FaceResult  `json:"face"`
	Voice *VoiceResult `json:"voice"`
}

// Value implements driver.Valuer.
func (m MLResult) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *MLResult) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = MLResult{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return fmt.Errorf("cannot scan %T into MLResult", src)
	}
}
