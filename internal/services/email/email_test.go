// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"testing"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"codeberg.org/oliverandrich/mindmirror/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RequiresHost(t *testing.T) {
	_, err := email.NewService(&config.SMTPConfig{From: "noreply@example.com"})

	assert.Error(t, err)
}

func TestNewService_RequiresFrom(t *testing.T) {
	_, err := email.NewService(&config.SMTPConfig{Host: "smtp.example.com"})

	assert.Error(t, err)
}

func TestNewService(t *testing.T) {
	svc, err := email.NewService(&config.SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@example.com",
	})

	require.NoError(t, err)
	assert.NotNil(t, svc)
}
