// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp generates and checks numeric one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// Digits is the fixed code length.
const Digits = 6

const (
	codeMin = 100000
	codeMax = 999999
)

// Generate returns a uniform-random 6-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// Matches compares a submitted code with the stored one in constant time.
func Matches(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}

// Expired reports whether a code's expiry has passed. The expiry instant
// itself still counts as valid: a code expires when expiresAt < now.
func Expired(expiresAt, now time.Time) bool {
	return expiresAt.Before(now)
}
