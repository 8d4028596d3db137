// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/mindmirror/internal/middleware"
	"codeberg.org/oliverandrich/mindmirror/internal/models"
	"github.com/labstack/echo/v4"
)

// Me returns the current user.
func (h *Handlers) Me(c echo.Context) error {
	user := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, map[string]*models.User{"user": user})
}

// TogglePlan switches the current user's subscription tier.
func (h *Handlers) TogglePlan(c echo.Context) error {
	var req struct {
		Plan string `json:"plan"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Plan != models.PlanFree && req.Plan != models.PlanPremium {
		return echo.NewHTTPError(http.StatusBadRequest, "plan must be free or premium")
	}

	user := middleware.CurrentUser(c)
	plan, err := h.auth.TogglePlan(c.Request().Context(), user.ID, req.Plan)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"plan": plan})
}
