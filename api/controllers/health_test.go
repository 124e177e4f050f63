package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/motorshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyReportsChecks(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingFunc(func(context.Context) error { return nil })
	handler := HealthReady(cfg, map[string]Pinger{"db": ok, "redis": ok}, nil)

	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-Motorshop-Env"))
	var envelope struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "ready", envelope.Data.Status)
	require.Equal(t, map[string]string{"db": "ok", "redis": "ok"}, envelope.Data.Checks)
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	handler := HealthReady(cfg, map[string]Pinger{"redis": down}, logg)

	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, pkgerrors.MetadataFor(pkgerrors.CodeDependency).HTTPStatus, resp.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, string(pkgerrors.CodeDependency), envelope.Error.Code)
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}
