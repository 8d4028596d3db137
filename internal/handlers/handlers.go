// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the JSON HTTP handlers.
package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/mindmirror/internal/services/auth"
	"codeberg.org/oliverandrich/mindmirror/internal/services/scan"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	auth  *auth.Service
	scans *scan.Service
}

// New creates a new Handlers instance.
func New(authSvc *auth.Service, scanSvc *scan.Service) *Handlers {
	return &Handlers{auth: authSvc, scans: scanSvc}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
