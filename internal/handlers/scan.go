// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/mindmirror/internal/middleware"
	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"codeberg.org/oliverandrich/mindmirror/internal/services/scan"
	"github.com/labstack/echo/v4"
)

// CreateScan accepts multipart image and audio fields, runs the analysis
// and returns the wellness report.
func (h *Handlers) CreateScan(c echo.Context) error {
	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		return err
	}
	if closeImage != nil {
		defer closeImage()
	}

	audio, closeAudio, err := formUpload(c, "audio")
	if err != nil {
		return err
	}
	if closeAudio != nil {
		defer closeAudio()
	}

	user := middleware.CurrentUser(c)
	result, err := h.scans.Process(c.Request().Context(), user, image, audio)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// ScanHistory lists the current user's recent scans, newest first.
func (h *Handlers) ScanHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	user := middleware.CurrentUser(c)
	scans, err := h.scans.History(c.Request().Context(), user.ID, limit)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string][]models.Scan{"scans": scans})
}

// formUpload opens an optional multipart file field. A missing field is not
// an error; the caller decides whether at least one blob is required.
func formUpload(c echo.Context, field string) (*scan.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	return &scan.Upload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, nil
}
