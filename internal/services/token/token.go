// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token mints and verifies the signed access and refresh tokens.
// The two kinds use distinct secrets, so one can never stand in for the
// other.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned for malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the embedded expiry has lapsed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the signed claims carried by both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Service mints and verifies access and refresh tokens.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewService builds a token service from configuration. Both secrets must be
// set and distinct.
func NewService(cfg *config.JWTConfig) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("both JWT secrets must be configured")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}

	accessTTL, err := ParseLifetime(cfg.AccessExpires)
	if err != nil {
		return nil, fmt.Errorf("access lifetime: %w", err)
	}
	refreshTTL, err := ParseLifetime(cfg.RefreshExpires)
	if err != nil {
		return nil, fmt.Errorf("refresh lifetime: %w", err)
	}

	return &Service{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// RefreshTTL returns the refresh token lifetime, used for ledger expiries.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken mints a short-lived access token.
func (s *Service) GenerateAccessToken(userID int64, email string) (string, error) {
	return generate(userID, email, s.accessSecret, s.accessTTL)
}

// GenerateRefreshToken mints a long-lived refresh token.
func (s *Service) GenerateRefreshToken(userID int64, email string) (string, error) {
	return generate(userID, email, s.refreshSecret, s.refreshTTL)
}

// VerifyAccessToken verifies and decodes an access token.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return verify(tokenString, s.accessSecret)
}

// VerifyRefreshToken verifies and decodes a refresh token.
func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return verify(tokenString, s.refreshSecret)
}

// UserID returns the numeric subject of the claims.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

func generate(userID int64, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseLifetime parses a token lifetime spec. It accepts anything
// time.ParseDuration does, plus a day suffix: "1d", "30d".
func ParseLifetime(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, errors.New("empty lifetime spec")
	}
	if days, ok := strings.CutSuffix(spec, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid lifetime spec %q", spec)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(spec)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid lifetime spec %q", spec)
	}
	return d, nil
}
