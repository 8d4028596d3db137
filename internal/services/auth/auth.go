// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the registration, activation, login, refresh,
// logout and password-reset flows on top of the user store, the one-time
// code engine, the token service and the refresh-token ledger.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
	"codeberg.org/oliverandrich/mindmirror/internal/services/otp"
	"codeberg.org/oliverandrich/mindmirror/internal/services/token"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateAccount    = errors.New("email already registered")
	ErrNotFound            = errors.New("user not found")
	ErrNoCodeIssued        = errors.New("no code issued, please register again")
	ErrInvalidCode         = errors.New("invalid code")
	ErrCodeExpired         = errors.New("code expired")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountNotActivated = errors.New("account not activated")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Notifier delivers one-time codes. Delivery is at-most-once and best-effort;
// the orchestrator never fails an operation because a notification failed.
type Notifier interface {
	SendOTP(ctx context.Context, toEmail, code string, ttl time.Duration, resend bool) error
	SendPasswordResetOTP(ctx context.Context, toEmail, code string, ttl time.Duration) error
}

// Service is the auth orchestrator.
type Service struct {
	repo     *repository.Repository
	tokens   *token.Service
	notifier Notifier
	config   *config.AuthConfig
}

// NewService creates the auth orchestrator. A nil notifier disables outgoing
// mail, which is useful in tests and local development.
func NewService(repo *repository.Repository, tokens *token.Service, notifier Notifier, cfg *config.AuthConfig) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		config:   cfg,
	}
}

// RegisterResult is returned by RegisterStep1.
type RegisterResult struct {
	TempUserID int64  `json:"tempUserId"`
	Message    string `json:"message"`
}

// MessageResult is a plain confirmation message.
type MessageResult struct {
	Message string `json:"message"`
}

// TokenPair holds a freshly minted access/refresh token pair.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token        string             `json:"token"`
	RefreshToken string             `json:"refreshToken"`
	User         models.UserSummary `json:"user"`
}

// RegisterStep1 starts a registration. An existing inactive account gets a
// fresh code instead of a second record; an existing active account is a
// duplicate.
func (s *Service) RegisterStep1(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = normalizeEmail(email)

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil && !existing.IsActive:
		if issueErr := s.issueOTP(ctx, existing.ID, existing.Email, otpResend); issueErr != nil {
			return nil, issueErr
		}
		slog.Info("register_otp_resent", "user_id", existing.ID)
		return &RegisterResult{TempUserID: existing.ID, Message: "OTP resent"}, nil

	case err == nil:
		return nil, ErrDuplicateAccount

	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.config.OTPTTL())

	user := &models.User{
		Email:        email,
		PasswordHash: string(passwordHash),
		OTP:          &code,
		OTPExpires:   &expiresAt,
		Plan:         s.config.DefaultPlan,
		Badges:       models.BadgeList{},
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.notify(ctx, email, code, otpInitial)

	slog.Info("register_success", "user_id", user.ID)
	return &RegisterResult{TempUserID: user.ID, Message: "OTP sent"}, nil
}

// ResendOTP issues a fresh code for a pending registration.
func (s *Service) ResendOTP(ctx context.Context, tempUserID int64) (*MessageResult, error) {
	user, err := s.repo.GetUserByID(ctx, tempUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.issueOTP(ctx, user.ID, user.Email, otpResend); err != nil {
		return nil, err
	}
	return &MessageResult{Message: "OTP resent"}, nil
}

// VerifyOTPAndActivate checks the submitted code, activates the account and
// mints the first token pair.
func (s *Service) VerifyOTPAndActivate(ctx context.Context, tempUserID int64, code string) (*TokenPair, error) {
	user, err := s.repo.GetUserWithOTP(ctx, tempUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := checkOTP(user, code); err != nil {
		slog.Warn("otp_verify_failed", "user_id", tempUserID, "reason", err)
		return nil, err
	}

	if err := s.repo.ActivateUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}

	pair, err := s.issueTokenPair(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	slog.Info("account_activated", "user_id", user.ID)
	return pair, nil
}

// Login verifies credentials and mints a token pair. A missing user, a user
// without a password and a wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password, clientIP, userAgent string) (*LoginResult, error) {
	user, err := s.repo.GetUserForLogin(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		slog.Warn("login_failed", "user_id", user.ID, "reason", "no_password")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "not_activated")
		return nil, ErrAccountNotActivated
	}

	// Best-effort device fingerprint; never blocks the login.
	if err := s.repo.CreateDevice(ctx, user.ID, clientIP, userAgent); err != nil {
		slog.Warn("device_log_failed", "user_id", user.ID, "error", err)
	}

	pair, err := s.issueTokenPair(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	slog.Info("login_success", "user_id", user.ID)
	return &LoginResult{
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
		User:         user.Summary(),
	}, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token. The
// token must verify against the refresh key AND still exist in the ledger;
// both failure modes collapse into ErrInvalidRefreshToken.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	if _, err := s.repo.GetRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("failed to check ledger: %w", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	access, err := s.tokens.GenerateAccessToken(userID, claims.Email)
	if err != nil {
		return "", fmt.Errorf("failed to mint access token: %w", err)
	}
	return access, nil
}

// Logout revokes a refresh token. Revoking an unknown token is not an
// error.
func (s *Service) Logout(ctx context.Context, refreshToken string) (*MessageResult, error) {
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return &MessageResult{Message: "Logged out"}, nil
}

// ForgotPassword issues a password-reset code. Unknown emails return
// ErrNotFound; clients route on it, so the resulting account-existence
// leak is accepted.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*MessageResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.issueOTP(ctx, user.ID, user.Email, otpReset); err != nil {
		return nil, err
	}
	return &MessageResult{Message: "Reset OTP sent"}, nil
}

// ResetPassword validates the reset code and replaces the password hash.
// Existing refresh tokens stay valid; sessions are not mass-revoked on
// password change.
func (s *Service) ResetPassword(ctx context.Context, tempUserID int64, code, newPassword string) (*MessageResult, error) {
	user, err := s.repo.GetUserWithOTP(ctx, tempUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := checkOTP(user, code); err != nil {
		slog.Warn("reset_code_check_failed", "user_id", tempUserID, "reason", err)
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, user.ID, string(passwordHash)); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_reset", "user_id", user.ID)
	return &MessageResult{Message: "Password reset successful"}, nil
}

// TogglePlan sets the subscription tier.
func (s *Service) TogglePlan(ctx context.Context, userID int64, plan string) (string, error) {
	if err := s.repo.SetUserPlan(ctx, userID, plan); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to set plan: %w", err)
	}
	return plan, nil
}

// CompleteProfile applies a partial profile update and returns the fresh
// user record.
func (s *Service) CompleteProfile(ctx context.Context, userID int64, update repository.ProfileUpdate) (*models.User, error) {
	if err := s.repo.UpdateUserProfile(ctx, userID, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

type otpKind int

const (
	otpInitial otpKind = iota
	otpResend
	otpReset
)

// issueOTP rotates the stored code and sends it best-effort.
func (s *Service) issueOTP(ctx context.Context, userID int64, email string, kind otpKind) error {
	code, err := otp.Generate()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.config.OTPTTL())
	if err := s.repo.SetUserOTP(ctx, userID, code, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to store code: %w", err)
	}
	s.notify(ctx, email, code, kind)
	return nil
}

// notify sends the code by mail, logging and swallowing any failure.
func (s *Service) notify(ctx context.Context, email, code string, kind otpKind) {
	if s.notifier == nil {
		return
	}
	var err error
	switch kind {
	case otpReset:
		err = s.notifier.SendPasswordResetOTP(ctx, email, code, s.config.OTPTTL())
	default:
		err = s.notifier.SendOTP(ctx, email, code, s.config.OTPTTL(), kind == otpResend)
	}
	if err != nil {
		slog.Warn("otp_mail_failed", "error", err)
	}
}

// issueTokenPair mints both tokens and records the refresh token in the
// ledger with expiry = now + refresh lifetime.
func (s *Service) issueTokenPair(ctx context.Context, userID int64, email string) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to mint refresh token: %w", err)
	}
	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if err := s.repo.CreateRefreshToken(ctx, userID, refresh, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to record refresh token: %w", err)
	}
	return &TokenPair{Token: access, RefreshToken: refresh}, nil
}

// checkOTP validates a submitted code against the stored one.
func checkOTP(user *models.User, code string) error {
	if user.OTP == nil || user.OTPExpires == nil {
		return ErrNoCodeIssued
	}
	if !otp.Matches(code, *user.OTP) {
		return ErrInvalidCode
	}
	if otp.Expired(*user.OTPExpires, time.Now()) {
		return ErrCodeExpired
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
