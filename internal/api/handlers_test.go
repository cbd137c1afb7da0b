// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/coordinator/coordinatortest"
	"github.com/tomtom215/compit-bridge/internal/models"
)

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t, false)
	rec, body := env.do(t, http.MethodGet, "/api/v1/health/live", "")
	checkStatus(t, rec, http.StatusOK)
	checkStringEqual(t, "status", body.Status, "success")
}

func TestHealthReady(t *testing.T) {
	t.Run("unavailable before first refresh", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec, body := env.do(t, http.MethodGet, "/api/v1/health/ready", "")
		checkStatus(t, rec, http.StatusServiceUnavailable)
		checkErrorCode(t, body, ErrCodeServiceUnavailable)

		var health models.HealthStatus
		decodeData(t, body, &health)
		checkStringEqual(t, "state", health.State, "uninitialized")
	})

	t.Run("healthy after refresh", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec, body := env.do(t, http.MethodGet, "/api/v1/health/ready", "")
		checkStatus(t, rec, http.StatusOK)

		var health models.HealthStatus
		decodeData(t, body, &health)
		checkStringEqual(t, "status", health.Status, "healthy")
		if health.CachedDevices != 2 || health.LastSuccess == nil {
			t.Errorf("unexpected health %+v", health)
		}
		checkStringEqual(t, "metadata state", body.Metadata.CoordinatorState, "ready")
	})

	t.Run("degraded with cached data", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.remote.SetStateErr(8, &compit.TransportError{Op: "fetch_state", Err: errors.New("timeout")})
		_ = env.coord.Refresh(t.Context())

		rec, body := env.do(t, http.MethodGet, "/api/v1/health/ready", "")
		checkStatus(t, rec, http.StatusOK)

		var health models.HealthStatus
		decodeData(t, body, &health)
		checkStringEqual(t, "status", health.Status, "degraded")
		if health.LastError == "" {
			t.Error("expected last_error")
		}
	})
}

func TestGates(t *testing.T) {
	t.Run("empty before refresh", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec, body := env.do(t, http.MethodGet, "/api/v1/gates", "")
		checkStatus(t, rec, http.StatusOK)
		if string(body.Data) != "[]" {
			t.Errorf("data = %s, want []", body.Data)
		}
	})

	t.Run("topology", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec, body := env.do(t, http.MethodGet, "/api/v1/gates", "")
		checkStatus(t, rec, http.StatusOK)

		var gates []models.Gate
		decodeData(t, body, &gates)
		if len(gates) != 1 || len(gates[0].Devices) != 2 {
			t.Fatalf("gates = %+v", gates)
		}
		checkStringEqual(t, "gate label", gates[0].Label, "Home")
	})
}

func TestEntities(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all", "", []string{"number_boiler_temp", "sensor_pump_speed"}},
		{"number", "?platform=number", []string{"number_boiler_temp"}},
		{"sensor", "?platform=sensor", []string{"sensor_pump_speed"}},
		{"switch", "?platform=switch", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodGet, "/api/v1/entities"+tt.query, "")
			checkStatus(t, rec, http.StatusOK)

			var list []models.EntityState
			decodeData(t, body, &list)
			if len(list) != len(tt.wantIDs) {
				t.Fatalf("entities = %d, want %d", len(list), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				checkStringEqual(t, "unique_id", list[i].UniqueID, id)
			}
		})
	}

	t.Run("invalid platform", func(t *testing.T) {
		rec, body := env.do(t, http.MethodGet, "/api/v1/entities?platform=light", "")
		checkStatus(t, rec, http.StatusBadRequest)
		checkErrorCode(t, body, ErrCodeValidation)
	})
}

func TestEntity(t *testing.T) {
	env := newTestEnv(t, true)

	rec, body := env.do(t, http.MethodGet, "/api/v1/entities/number_boiler_temp", "")
	checkStatus(t, rec, http.StatusOK)

	var st models.EntityState
	decodeData(t, body, &st)
	checkStringEqual(t, "name", st.Name, "Boiler Temperature")
	if st.Value != 45.0 || !st.Writable || st.Max == nil || *st.Max != 90 {
		t.Errorf("unexpected state %+v", st)
	}

	rec, body = env.do(t, http.MethodGet, "/api/v1/entities/number_boiler_missing", "")
	checkStatus(t, rec, http.StatusNotFound)
	checkErrorCode(t, body, ErrCodeNotFound)
}

func TestSetEntityValue(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		env := newTestEnv(t, true)
		// The write triggers a refresh; the device reports the new value.
		env.remote.SetState(7, coordinatortest.State("temp", 60.0))

		rec, body := env.do(t, http.MethodPut, "/api/v1/entities/number_boiler_temp", `{"value": 60}`)
		checkStatus(t, rec, http.StatusOK)

		var result models.WriteResult
		decodeData(t, body, &result)
		if !result.Accepted || result.Entity == nil || result.Entity.Value != 60.0 {
			t.Errorf("unexpected result %+v", result)
		}

		writes := env.remote.Writes()
		if len(writes) != 1 || writes[0].DeviceID != 7 || writes[0].Code != "temp" {
			t.Errorf("writes = %+v", writes)
		}
	})

	tests := []struct {
		name       string
		id         string
		body       string
		writeOK    bool
		writeErr   error
		wantStatus int
		wantCode   string
	}{
		{"rejected", "number_boiler_temp", `{"value": 60}`, false, nil, http.StatusConflict, ErrCodeWriteRejected},
		{"upstream auth", "number_boiler_temp", `{"value": 60}`, false,
			&compit.AuthError{Op: "update_parameter", Status: 401, Err: errors.New("expired")},
			http.StatusBadGateway, ErrCodeUpstreamAuth},
		{"upstream transport", "number_boiler_temp", `{"value": 60}`, false,
			&compit.TransportError{Op: "update_parameter", Err: errors.New("connection refused")},
			http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{"out of bounds", "number_boiler_temp", `{"value": 91}`, true, nil, http.StatusBadRequest, ErrCodeValidation},
		{"not a number", "number_boiler_temp", `{"value": "warm"}`, true, nil, http.StatusBadRequest, ErrCodeValidation},
		{"read-only", "sensor_pump_speed", `{"value": 1}`, true, nil, http.StatusMethodNotAllowed, ErrCodeNotWritable},
		{"unknown entity", "number_boiler_missing", `{"value": 1}`, true, nil, http.StatusNotFound, ErrCodeNotFound},
		{"missing value", "number_boiler_temp", `{}`, true, nil, http.StatusBadRequest, ErrCodeValidation},
		{"null value", "number_boiler_temp", `{"value": null}`, true, nil, http.StatusBadRequest, ErrCodeValidation},
		{"object value", "number_boiler_temp", `{"value": {"a": 1}}`, true, nil, http.StatusBadRequest, ErrCodeValidation},
		{"array value", "number_boiler_temp", `{"value": [1, 2]}`, true, nil, http.StatusBadRequest, ErrCodeValidation},
		{"malformed json", "number_boiler_temp", `{"value":`, true, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"empty body", "number_boiler_temp", ``, true, nil, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			env.remote.SetWriteResult(tt.writeOK, tt.writeErr)

			rec, body := env.do(t, http.MethodPut, "/api/v1/entities/"+tt.id, tt.body)
			checkStatus(t, rec, tt.wantStatus)
			checkErrorCode(t, body, tt.wantCode)
		})
	}

	t.Run("non-scalar value names the field", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec, body := env.do(t, http.MethodPut, "/api/v1/entities/number_boiler_temp", `{"value": {"a": 1}}`)
		checkStatus(t, rec, http.StatusBadRequest)
		checkErrorCode(t, body, ErrCodeValidation)
		checkStringEqual(t, "message", body.Error.Message, "value must be a number, boolean or string")
		if field, _ := body.Error.Details["field"].(string); field != "value" {
			t.Errorf("details.field = %v, want value", body.Error.Details["field"])
		}
		if len(env.remote.Writes()) != 0 {
			t.Errorf("writes = %+v, want none", env.remote.Writes())
		}
	})

	t.Run("rejected write keeps value", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.remote.SetWriteResult(false, nil)
		env.do(t, http.MethodPut, "/api/v1/entities/number_boiler_temp", `{"value": 70}`)

		e, ok := env.registry.Get("number_boiler_temp")
		if !ok {
			t.Fatal("entity vanished")
		}
		if e.Value() != 45.0 {
			t.Errorf("value after rejected write = %v, want 45", e.Value())
		}
	})
}

func TestRefresh(t *testing.T) {
	t.Run("scheduled", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec, body := env.do(t, http.MethodPost, "/api/v1/refresh", "")
		checkStatus(t, rec, http.StatusAccepted)

		var result RefreshResult
		decodeData(t, body, &result)
		if result.Completed {
			t.Error("scheduled refresh reported completed")
		}
	})

	t.Run("waits for completion", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec, body := env.do(t, http.MethodPost, "/api/v1/refresh", `{"wait_seconds": 5}`)
		checkStatus(t, rec, http.StatusOK)

		var result RefreshResult
		decodeData(t, body, &result)
		if !result.Completed || result.State != "ready" {
			t.Errorf("unexpected result %+v", result)
		}
		if env.registry.Len() != 2 {
			t.Errorf("registry has %d entities after refresh, want 2", env.registry.Len())
		}
	})

	t.Run("partial failure reports error", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.remote.SetStateErr(8, &compit.TransportError{Op: "fetch_state", Err: errors.New("timeout")})

		rec, body := env.do(t, http.MethodPost, "/api/v1/refresh", `{"wait_seconds": 5}`)
		checkStatus(t, rec, http.StatusOK)

		var result RefreshResult
		decodeData(t, body, &result)
		if result.State != "degraded" || result.Error == "" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("authentication failure", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.remote.SetCredential(nil)
		env.remote.SetAuthErr(&compit.AuthError{Op: "authorize", Status: 401, Err: errors.New("bad password")})

		rec, body := env.do(t, http.MethodPost, "/api/v1/refresh", `{"wait_seconds": 5}`)
		checkStatus(t, rec, http.StatusBadGateway)
		checkErrorCode(t, body, ErrCodeUpstreamAuth)
	})

	t.Run("invalid wait", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec, body := env.do(t, http.MethodPost, "/api/v1/refresh", `{"wait_seconds": 500}`)
		checkStatus(t, rec, http.StatusBadRequest)
		checkErrorCode(t, body, ErrCodeValidation)
	})
}

func TestRoutes_NotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t, true)

	rec, body := env.do(t, http.MethodGet, "/api/v1/nope", "")
	checkStatus(t, rec, http.StatusNotFound)
	checkErrorCode(t, body, ErrCodeNotFound)

	rec, body = env.do(t, http.MethodDelete, "/api/v1/entities/number_boiler_temp", "")
	checkStatus(t, rec, http.StatusMethodNotAllowed)
	checkErrorCode(t, body, "METHOD_NOT_ALLOWED")
}
