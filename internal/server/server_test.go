// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"codeberg.org/oliverandrich/mindmirror/internal/i18n"
	"codeberg.org/oliverandrich/mindmirror/internal/repository"
	"codeberg.org/oliverandrich/mindmirror/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0, MaxBodySize: 5},
		Log:    config.LogConfig{Level: "error", Format: "text"},
		JWT: config.JWTConfig{
			AccessSecret:   "access-test-secret",
			AccessExpires:  "1d",
			RefreshSecret:  "refresh-test-secret",
			RefreshExpires: "30d",
		},
		Auth: config.AuthConfig{
			OTPTTLSeconds: 600,
			BcryptCost:    bcrypt.MinCost,
			DefaultPlan:   "free",
		},
		Upload: config.UploadConfig{Dir: t.TempDir()},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *repository.Repository) {
	t.Helper()
	require.NoError(t, i18n.Init())

	_, repo := testutil.NewTestDB(t)
	e, err := buildEcho(testConfig(t), repo)
	require.NoError(t, err)

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts, repo
}

func postJSON(t *testing.T, url, body, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/user/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	postResp, _ := postJSON(t, ts.URL+"/api/v1/user/plan", `{"plan":"premium"}`, "")
	assert.Equal(t, http.StatusUnauthorized, postResp.StatusCode)
}

func TestRegisterActivateLoginOverHTTP(t *testing.T) {
	ts, repo := newTestServer(t)
	ctx := t.Context()

	// Register
	resp, payload := postJSON(t, ts.URL+"/api/v1/auth/register",
		`{"email":"flow@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tempID := int64(payload["tempUserId"].(float64))

	// Fetch the code from the store, no mailer is configured in tests.
	pending, err := repo.GetUserWithOTP(ctx, tempID)
	require.NoError(t, err)
	require.NotNil(t, pending.OTP)

	// Activate
	resp, payload = postJSON(t, ts.URL+"/api/v1/auth/verify-otp",
		`{"tempUserId":`+strconv.FormatInt(tempID, 10)+`,"otp":"`+*pending.OTP+`"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := payload["token"].(string)
	refresh := payload["refreshToken"].(string)

	// Authenticated request
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/user/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	meResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer meResp.Body.Close()
	assert.Equal(t, http.StatusOK, meResp.StatusCode)

	// Refresh then logout
	resp, _ = postJSON(t, ts.URL+"/api/v1/auth/refresh",
		`{"refreshToken":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/api/v1/auth/logout",
		`{"refreshToken":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/api/v1/auth/refresh",
		`{"refreshToken":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
