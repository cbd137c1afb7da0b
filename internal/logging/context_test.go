// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("expected 8-character correlation ID, got %q", a)
	}
	if a == b {
		t.Errorf("expected unique IDs, got %q twice", a)
	}
}

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty correlation ID, got %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = ContextWithCorrelationID(ctx, "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-1")

	if got := CorrelationIDFromContext(ctx); got != "abcd1234" {
		t.Errorf("CorrelationIDFromContext = %q, want abcd1234", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q, want req-1", got)
	}

	fresh := ContextWithNewCorrelationID(context.Background())
	if CorrelationIDFromContext(fresh) == "" {
		t.Error("expected generated correlation ID")
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ContextWithRequestID(ctx, "req-1")

	Ctx(ctx).Info().Msg("with ids")

	output := buf.String()
	if !strings.Contains(output, `"correlation_id":"corr-1"`) {
		t.Errorf("expected correlation_id in output: %s", output)
	}
	if !strings.Contains(output, `"request_id":"req-1"`) {
		t.Errorf("expected request_id in output: %s", output)
	}
}
