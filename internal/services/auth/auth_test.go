// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
	"codeberg.org/oliverandrich/mindmirror/internal/services/auth"
	"codeberg.org/oliverandrich/mindmirror/internal/services/token"
	"codeberg.org/oliverandrich/mindmirror/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeNotifier records sent codes instead of mailing them.
type fakeNotifier struct {
	codes  []string
	resets []string
}

func (f *fakeNotifier) SendOTP(_ context.Context, _, code string, _ time.Duration, _ bool) error {
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeNotifier) SendPasswordResetOTP(_ context.Context, _, code string, _ time.Duration) error {
	f.resets = append(f.resets, code)
	return nil
}

func (f *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.codes)
	return f.codes[len(f.codes)-1]
}

func newTestService(t *testing.T) (*auth.Service, *repository.Repository, *fakeNotifier) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)

	tokens, err := token.NewService(&config.JWTConfig{
		AccessSecret:   "access-test-secret",
		AccessExpires:  "1d",
		RefreshSecret:  "refresh-test-secret",
		RefreshExpires: "30d",
	})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	svc := auth.NewService(repo, tokens, notifier, &config.AuthConfig{
		OTPTTLSeconds: 600,
		BcryptCost:    bcrypt.MinCost,
		DefaultPlan:   models.PlanFree,
	})
	return svc, repo, notifier
}

func TestRegisterStep1(t *testing.T) {
	t.Run("creates pending user and sends code", func(t *testing.T) {
		svc, repo, notifier := newTestService(t)
		ctx := context.Background()

		result, err := svc.RegisterStep1(ctx, "Alice@Example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "OTP sent", result.Message)
		assert.NotZero(t, result.TempUserID)
		assert.Len(t, notifier.codes, 1)

		user, err := repo.GetUserByID(ctx, result.TempUserID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.False(t, user.IsActive)
		assert.Equal(t, models.PlanFree, user.Plan)
	})

	t.Run("second register for pending account reuses it", func(t *testing.T) {
		svc, _, notifier := newTestService(t)
		ctx := context.Background()

		first, err := svc.RegisterStep1(ctx, "bob@example.com", "password123")
		require.NoError(t, err)
		firstCode := notifier.lastCode(t)

		second, err := svc.RegisterStep1(ctx, "bob@example.com", "otherpassword")
		require.NoError(t, err)
		assert.Equal(t, first.TempUserID, second.TempUserID)
		assert.Equal(t, "OTP resent", second.Message)
		assert.Len(t, notifier.codes, 2)

		// The old code is replaced, not accumulated.
		if notifier.lastCode(t) != firstCode {
			_, err = svc.VerifyOTPAndActivate(ctx, first.TempUserID, firstCode)
			assert.ErrorIs(t, err, auth.ErrInvalidCode)
		}
	})

	t.Run("register for active account fails", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		testutil.NewActiveUser(t, repo, "carol@example.com", "password123")

		_, err := svc.RegisterStep1(context.Background(), "carol@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrDuplicateAccount)
	})
}

func TestResendOTP(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	result, err := svc.RegisterStep1(ctx, "dave@example.com", "password123")
	require.NoError(t, err)

	msg, err := svc.ResendOTP(ctx, result.TempUserID)
	require.NoError(t, err)
	assert.Equal(t, "OTP resent", msg.Message)
	assert.Len(t, notifier.codes, 2)

	_, err = svc.ResendOTP(ctx, 99999)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestVerifyOTPAndActivate(t *testing.T) {
	t.Run("correct code activates and mints tokens", func(t *testing.T) {
		svc, repo, notifier := newTestService(t)
		ctx := context.Background()

		result, err := svc.RegisterStep1(ctx, "erin@example.com", "password123")
		require.NoError(t, err)

		pair, err := svc.VerifyOTPAndActivate(ctx, result.TempUserID, notifier.lastCode(t))
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Token)
		assert.NotEmpty(t, pair.RefreshToken)

		user, err := repo.GetUserByID(ctx, result.TempUserID)
		require.NoError(t, err)
		assert.True(t, user.IsActive)

		// Refresh token lands in the ledger with a 30 day expiry.
		stored, err := repo.GetRefreshToken(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, result.TempUserID, stored.UserID)
		assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), stored.ExpiresAt, time.Minute)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		svc, _, notifier := newTestService(t)
		ctx := context.Background()

		result, err := svc.RegisterStep1(ctx, "frank@example.com", "password123")
		require.NoError(t, err)

		wrong := "000000"
		if notifier.lastCode(t) == wrong {
			wrong = "111111"
		}
		_, err = svc.VerifyOTPAndActivate(ctx, result.TempUserID, wrong)
		assert.ErrorIs(t, err, auth.ErrInvalidCode)
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		ctx := context.Background()

		user := testutil.NewPendingUser(t, repo, "grace@example.com", "password123")
		require.NoError(t, repo.SetUserOTP(ctx, user.ID, "123456", time.Now().Add(-time.Second)))

		_, err := svc.VerifyOTPAndActivate(ctx, user.ID, "123456")
		assert.ErrorIs(t, err, auth.ErrCodeExpired)
	})

	t.Run("no code on record", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		user := testutil.NewPendingUser(t, repo, "heidi@example.com", "password123")

		_, err := svc.VerifyOTPAndActivate(context.Background(), user.ID, "123456")
		assert.ErrorIs(t, err, auth.ErrNoCodeIssued)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.VerifyOTPAndActivate(context.Background(), 99999, "123456")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		ctx := context.Background()
		user := testutil.NewActiveUser(t, repo, "ivan@example.com", "password123")

		result, err := svc.Login(ctx, "Ivan@Example.com", "password123", "10.0.0.1", "test-agent")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, "ivan@example.com", result.User.Email)

		_, err = repo.GetRefreshToken(ctx, result.RefreshToken)
		require.NoError(t, err)

		devices, err := repo.ListUserDevices(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, "10.0.0.1", devices[0].IP)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		testutil.NewActiveUser(t, repo, "judy@example.com", "password123")

		_, err := svc.Login(context.Background(), "judy@example.com", "wrong", "", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Login(context.Background(), "nobody@example.com", "password123", "", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		testutil.NewPendingUser(t, repo, "karl@example.com", "password123")

		_, err := svc.Login(context.Background(), "karl@example.com", "password123", "", "")
		assert.ErrorIs(t, err, auth.ErrAccountNotActivated)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	testutil.NewActiveUser(t, repo, "lena@example.com", "password123")

	login, err := svc.Login(ctx, "lena@example.com", "password123", "", "")
	require.NoError(t, err)

	t.Run("valid token yields new access token", func(t *testing.T) {
		access, err := svc.RefreshAccessToken(ctx, login.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.RefreshAccessToken(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})

	t.Run("revoked token is rejected even with valid signature", func(t *testing.T) {
		_, err := svc.Logout(ctx, login.RefreshToken)
		require.NoError(t, err)

		_, err = svc.RefreshAccessToken(ctx, login.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Revoking an unknown token succeeds.
	msg, err := svc.Logout(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Equal(t, "Logged out", msg.Message)
}

func TestPasswordReset(t *testing.T) {
	t.Run("full flow", func(t *testing.T) {
		svc, repo, notifier := newTestService(t)
		ctx := context.Background()
		user := testutil.NewActiveUser(t, repo, "mallory@example.com", "oldpassword")

		msg, err := svc.ForgotPassword(ctx, "mallory@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Reset OTP sent", msg.Message)
		require.Len(t, notifier.resets, 1)

		msg, err = svc.ResetPassword(ctx, user.ID, notifier.resets[0], "newpassword")
		require.NoError(t, err)
		assert.Equal(t, "Password reset successful", msg.Message)

		_, err = svc.Login(ctx, "mallory@example.com", "oldpassword", "", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = svc.Login(ctx, "mallory@example.com", "newpassword", "", "")
		require.NoError(t, err)
	})

	t.Run("forgot password for unknown email", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.ForgotPassword(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("reset with wrong code", func(t *testing.T) {
		svc, repo, notifier := newTestService(t)
		ctx := context.Background()
		user := testutil.NewActiveUser(t, repo, "nils@example.com", "password123")

		_, err := svc.ForgotPassword(ctx, "nils@example.com")
		require.NoError(t, err)

		wrong := "000000"
		if notifier.resets[0] == wrong {
			wrong = "111111"
		}
		_, err = svc.ResetPassword(ctx, user.ID, wrong, "newpassword")
		assert.ErrorIs(t, err, auth.ErrInvalidCode)
	})

	t.Run("code is single use", func(t *testing.T) {
		svc, repo, notifier := newTestService(t)
		ctx := context.Background()
		user := testutil.NewActiveUser(t, repo, "olga@example.com", "password123")

		_, err := svc.ForgotPassword(ctx, "olga@example.com")
		require.NoError(t, err)
		code := notifier.resets[0]

		_, err = svc.ResetPassword(ctx, user.ID, code, "newpassword")
		require.NoError(t, err)

		_, err = svc.ResetPassword(ctx, user.ID, code, "anotherpassword")
		assert.ErrorIs(t, err, auth.ErrNoCodeIssued)
	})

	t.Run("reset keeps existing sessions", func(t *testing.T) {
		svc, repo, notifier := newTestService(t)
		ctx := context.Background()
		user := testutil.NewActiveUser(t, repo, "pete@example.com", "password123")

		login, err := svc.Login(ctx, "pete@example.com", "password123", "", "")
		require.NoError(t, err)

		_, err = svc.ForgotPassword(ctx, "pete@example.com")
		require.NoError(t, err)
		_, err = svc.ResetPassword(ctx, user.ID, notifier.resets[0], "newpassword")
		require.NoError(t, err)

		_, err = svc.RefreshAccessToken(ctx, login.RefreshToken)
		require.NoError(t, err)
	})
}

func TestTogglePlan(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.NewActiveUser(t, repo, "quinn@example.com", "password123")

	plan, err := svc.TogglePlan(ctx, user.ID, models.PlanPremium)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, plan)

	fresh, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, fresh.Plan)

	_, err = svc.TogglePlan(ctx, 99999, models.PlanFree)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCompleteProfile(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.NewActiveUser(t, repo, "rita@example.com", "password123")

	name := "Rita"
	dob := time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC)
	consent := true
	updated, err := svc.CompleteProfile(ctx, user.ID, repository.ProfileUpdate{
		Name:    &name,
		DOB:     &dob,
		Consent: &consent,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "Rita", *updated.Name)
	assert.True(t, updated.Consent)

	_, err = svc.CompleteProfile(ctx, 99999, repository.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestRegisterVerifyLoginEndToEnd(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	reg, err := svc.RegisterStep1(ctx, "sam@example.com", "password123")
	require.NoError(t, err)

	pair, err := svc.VerifyOTPAndActivate(ctx, reg.TempUserID, notifier.lastCode(t))
	require.NoError(t, err)

	access, err := svc.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	login, err := svc.Login(ctx, "sam@example.com", "password123", "", "")
	require.NoError(t, err)
	assert.Equal(t, reg.TempUserID, login.User.ID)

	_, err = svc.Logout(ctx, login.RefreshToken)
	require.NoError(t, err)
	_, err = svc.RefreshAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}
