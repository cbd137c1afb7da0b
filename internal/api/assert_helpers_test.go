// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/coordinator/coordinatortest"
	"github.com/tomtom215/compit-bridge/internal/entity"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/models"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

// envelope mirrors models.APIResponse with Data left raw.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// testEnv is a handler wired to a real coordinator and registry over the
// in-memory Compit API: a boiler (number_boiler_temp, 0..90) and a pump
// (sensor_pump_speed).
type testEnv struct {
	remote   *coordinatortest.FakeAPI
	coord    *coordinator.Coordinator
	registry *entity.Registry
	handler  *Handler
	router   http.Handler
}

func newTestEnv(t *testing.T, refreshed bool) *testEnv {
	t.Helper()
	remote := coordinatortest.NewFakeAPI()
	cfg := coordinator.DefaultConfig()
	cfg.Email, cfg.Password = "user@example.com", "secret"
	coord := coordinator.New(remote, cfg)
	t.Cleanup(coord.Stop)

	registry := entity.NewRegistry(coord, nil)
	registry.Attach(coord)

	if refreshed {
		if err := coord.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}

	handler := NewHandler(coord, registry, nil, []string{"http://allowed.example"})
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = []string{"http://allowed.example"}
	mwCfg.RateLimitDisabled = true
	return &testEnv{
		remote:   remote,
		coord:    coord,
		registry: registry,
		handler:  handler,
		router:   NewRouter(handler, NewChiMiddleware(mwCfg)).SetupChi(),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec, decodeEnvelope(t, rec)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: expected %d, got %d (body %s)", want, rec.Code, rec.Body.String())
	}
}

func checkErrorCode(t *testing.T, env envelope, want string) {
	t.Helper()
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got status %q", env.Status)
	}
	if env.Error.Code != want {
		t.Errorf("error code: expected %q, got %q (%s)", want, env.Error.Code, env.Error.Message)
	}
}

func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}
