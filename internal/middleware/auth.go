// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides the bearer-token guard for protected routes.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/services/token"
	"github.com/labstack/echo/v4"
)

const userContextKey = "currentUser"

// UserLoader loads the full user record for a verified token subject.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// RequireAuth verifies the Authorization bearer token and loads the user
// into the request context. Any failure, missing header, bad signature,
// expired token or vanished user, yields 401.
func RequireAuth(tokens *token.Service, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := tokens.VerifyAccessToken(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			user, err := users.GetUserByID(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user, or nil outside RequireAuth.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// SetCurrentUser injects a user into the context, for handler tests.
func SetCurrentUser(c echo.Context, user *models.User) {
	c.Set(userContextKey, user)
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
