// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"net/mail"
	"regexp"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/middleware"
	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
	"github.com/labstack/echo/v4"
)

const minPasswordLength = 8

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *credentialsRequest) validate() error {
	if !validEmail(r.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
	}
	if len(r.Password) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	return nil
}

// Register starts a registration and sends the activation code.
func (h *Handlers) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := h.auth.RegisterStep1(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// ResendOTP issues a fresh activation code for a pending registration.
func (h *Handlers) ResendOTP(c echo.Context) error {
	var req struct {
		TempUserID int64 `json:"tempUserId"`
	}
	if err := c.Bind(&req); err != nil || req.TempUserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tempUserId is required")
	}

	result, err := h.auth.ResendOTP(c.Request().Context(), req.TempUserID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// VerifyOTP activates an account and returns the first token pair.
func (h *Handlers) VerifyOTP(c echo.Context) error {
	var req struct {
		TempUserID int64  `json:"tempUserId"`
		OTP        string `json:"otp"`
	}
	if err := c.Bind(&req); err != nil || req.TempUserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tempUserId is required")
	}
	if !otpPattern.MatchString(req.OTP) {
		return echo.NewHTTPError(http.StatusBadRequest, "otp must be 6 digits")
	}

	pair, err := h.auth.VerifyOTPAndActivate(c.Request().Context(), req.TempUserID, req.OTP)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Login verifies credentials and returns a token pair plus the user.
func (h *Handlers) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password,
		c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// Refresh exchanges a refresh token for a new access token.
func (h *Handlers) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refreshToken is required")
	}

	access, err := h.auth.RefreshAccessToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": access})
}

// Logout revokes a refresh token.
func (h *Handlers) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refreshToken is required")
	}

	result, err := h.auth.Logout(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// ForgotPassword sends a password-reset code.
func (h *Handlers) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || !validEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
	}

	result, err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// ResetPassword replaces the password after code verification.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req struct {
		TempUserID  int64  `json:"tempUserId"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil || req.TempUserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tempUserId is required")
	}
	if !otpPattern.MatchString(req.OTP) {
		return echo.NewHTTPError(http.StatusBadRequest, "otp must be 6 digits")
	}
	if len(req.NewPassword) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	result, err := h.auth.ResetPassword(c.Request().Context(), req.TempUserID, req.OTP, req.NewPassword)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// CompleteProfile applies a partial profile update for the current user.
func (h *Handlers) CompleteProfile(c echo.Context) error {
	var req struct {
		Name    *string `json:"name"`
		DOB     *string `json:"dob"`
		Consent *bool   `json:"consent"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	update := repository.ProfileUpdate{Consent: req.Consent}
	if req.Name != nil {
		if len(*req.Name) < 2 {
			return echo.NewHTTPError(http.StatusBadRequest, "name must be at least 2 characters")
		}
		update.Name = req.Name
	}
	if req.DOB != nil {
		dob, err := parseDOB(*req.DOB)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid dob")
		}
		update.DOB = &dob
	}

	current := middleware.CurrentUser(c)
	user, err := h.auth.CompleteProfile(c.Request().Context(), current.ID, update)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]*models.User{"user": user})
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func parseDOB(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
