// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/mindmirror/internal/services/auth"
	"codeberg.org/oliverandrich/mindmirror/internal/services/scan"
	"github.com/labstack/echo/v4"
)

// apiError maps a service error onto the HTTP status it should produce.
// Unknown errors are logged and hidden behind a generic 500.
func apiError(err error) error {
	switch {
	case errorIsAny(err, auth.ErrDuplicateAccount):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errorIsAny(err, auth.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errorIsAny(err, auth.ErrInvalidCode, auth.ErrNoCodeIssued, auth.ErrCodeExpired, scan.ErrNoInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errorIsAny(err, auth.ErrInvalidCredentials, auth.ErrInvalidRefreshToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errorIsAny(err, auth.ErrAccountNotActivated):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		slog.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func errorIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
