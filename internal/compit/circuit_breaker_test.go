// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package compit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/compit-bridge/internal/metrics"
)

func TestCircuitBreakerClient_TripsOnTransportFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cbc := NewCircuitBreakerClient(authenticatedClient(t, server.URL))
	rejectedBefore := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("compit-api", "rejected"))

	for i := 0; i < 10; i++ {
		if _, err := cbc.FetchTopology(context.Background()); !IsTransportError(err) {
			t.Fatalf("call %d: expected TransportError, got %v", i, err)
		}
	}
	checkStringEqual(t, "state", cbc.State(), "open")

	_, err := cbc.FetchParameterState(context.Background(), 7)
	if !errors.Is(err, ErrCircuitOpen) || !IsTransportError(err) {
		t.Fatalf("expected TransportError wrapping ErrCircuitOpen, got %v", err)
	}
	checkIntEqual(t, "server calls", int(calls.Load()), 10)

	rejectedAfter := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("compit-api", "rejected"))
	if rejectedAfter != rejectedBefore+1 {
		t.Errorf("rejected metric = %v, want %v", rejectedAfter, rejectedBefore+1)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("compit-api")); got != 2 {
		t.Errorf("breaker state gauge = %v, want 2", got)
	}
}

func TestCircuitBreakerClient_IgnoresHealthyAnswers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gates":
			w.WriteHeader(http.StatusUnauthorized)
		case "/devices/7/params":
			w.WriteHeader(http.StatusUnprocessableEntity)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cbc := NewCircuitBreakerClient(authenticatedClient(t, server.URL))
	for i := 0; i < 5; i++ {
		if _, err := cbc.FetchTopology(context.Background()); !IsAuthError(err) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if _, err := cbc.FetchParameterState(context.Background(), 99); !IsNotFound(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		ok, err := cbc.UpdateParameter(context.Background(), 7, "__tzadana", 1)
		checkNoError(t, err)
		checkBool(t, "accepted", ok, false)
	}
	checkStringEqual(t, "state", cbc.State(), "closed")
}

func TestCircuitBreakerClient_PassesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, topologyJSON)
	}))
	defer server.Close()

	cbc := NewCircuitBreakerClient(authenticatedClient(t, server.URL))
	gates, err := cbc.FetchTopology(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "gates", len(gates), 1)
	checkStringEqual(t, "credential", cbc.Credential().Token, "test-token")
}
