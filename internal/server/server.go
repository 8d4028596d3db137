// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the services together and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"codeberg.org/oliverandrich/mindmirror/internal/database"
	"codeberg.org/oliverandrich/mindmirror/internal/handlers"
	"codeberg.org/oliverandrich/mindmirror/internal/i18n"
	appmiddleware "codeberg.org/oliverandrich/mindmirror/internal/middleware"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
	"codeberg.org/oliverandrich/mindmirror/internal/services/auth"
	"codeberg.org/oliverandrich/mindmirror/internal/services/email"
	"codeberg.org/oliverandrich/mindmirror/internal/services/gamification"
	"codeberg.org/oliverandrich/mindmirror/internal/services/scan"
	"codeberg.org/oliverandrich/mindmirror/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	e, err := buildEcho(cfg, repository.New(db))
	if err != nil {
		return err
	}

	return startWithGracefulShutdown(ctx, e, cfg)
}

// buildEcho assembles the service graph and the route table.
func buildEcho(cfg *config.Config, repo *repository.Repository) (*echo.Echo, error) {
	tokens, err := token.NewService(&cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to init token service: %w", err)
	}

	var notifier auth.Notifier
	if cfg.SMTP.Host != "" {
		mailer, mailErr := email.NewService(&cfg.SMTP)
		if mailErr != nil {
			return nil, fmt.Errorf("failed to init mailer: %w", mailErr)
		}
		notifier = mailer
	} else {
		slog.Warn("smtp not configured, one-time codes will not be delivered")
	}

	authSvc := auth.NewService(repo, tokens, notifier, &cfg.Auth)
	scanSvc := scan.NewService(repo, gamification.NewService(repo), cfg.Upload.Dir)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, handlers.New(authSvc, scanSvc), tokens, repo)

	return e, nil
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers, tokens *token.Service, repo *repository.Repository) {
	requireAuth := appmiddleware.RequireAuth(tokens, repo)

	e.GET("/health", h.Health)

	api := e.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/resend-otp", h.ResendOTP)
	authGroup.POST("/verify-otp", h.VerifyOTP)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", h.Logout)
	authGroup.POST("/forgot-password", h.ForgotPassword)
	authGroup.POST("/reset-password", h.ResetPassword)
	authGroup.POST("/complete-profile", h.CompleteProfile, requireAuth)

	userGroup := api.Group("/user", requireAuth)
	userGroup.GET("/me", h.Me)
	userGroup.POST("/plan", h.TogglePlan)

	scanGroup := api.Group("/scan", requireAuth)
	scanGroup.POST("", h.CreateScan)
	scanGroup.GET("/history", h.ScanHistory)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
