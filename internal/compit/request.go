// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

/*
request.go - Compit HTTP Request Helpers

Every request goes through doRequest, which:
  - waits on the client's token bucket
  - sets Content-Type and the raw-token Authorization header
  - retries HTTP 429 with exponential backoff, honouring Retry-After
  - maps the response status onto the error taxonomy
  - decodes the JSON body with goccy/go-json

Status mapping:
  - 401, 403: AuthError
  - 404: NotFoundError when notFound is set, TransportError otherwise
  - other 4xx: errRejected when rejectClientErrors is set (writes)
  - everything else non-2xx: TransportError
*/

//nolint:staticcheck // File documentation, not package doc
package compit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// requestConfig holds configuration for building HTTP requests
type requestConfig struct {
	op     string
	method string
	path   string
	body   interface{}

	// token overrides the held credential; used during client registration.
	token string
	// anonymous skips the Authorization header.
	anonymous bool

	// ignoreStatus decodes the body whatever the status. Used for the 422
	// answer of /authorize, which still carries a token.
	ignoreStatus       bool
	notFound           *NotFoundError
	rejectClientErrors bool
}

// doRequest executes one API call and decodes the response into result.
// It returns the HTTP status alongside any error.
func (c *Client) doRequest(ctx context.Context, cfg requestConfig, result interface{}) (int, error) {
	start := time.Now()
	status, err := c.execute(ctx, cfg, result)
	metrics.RecordRemoteRequest(cfg.op, outcome(err), time.Since(start))
	return status, err
}

func (c *Client) execute(ctx context.Context, cfg requestConfig, result interface{}) (int, error) {
	token := cfg.token
	if !cfg.anonymous && token == "" {
		cred := c.Credential()
		if !cred.Usable(time.Now()) {
			return 0, &AuthError{Op: cfg.op, Err: ErrUnauthenticated}
		}
		token = cred.Token
	}

	var body io.Reader = http.NoBody
	if cfg.body != nil {
		payload, err := json.Marshal(cfg.body)
		if err != nil {
			return 0, fmt.Errorf("compit %s: encode request: %w", cfg.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.method, c.baseURL+cfg.path, body)
	if err != nil {
		return 0, fmt.Errorf("compit %s: create request: %w", cfg.op, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	if !cfg.anonymous {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.doRequestWithRateLimit(req)
	if err != nil {
		return 0, &TransportError{Op: cfg.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(cfg, resp.StatusCode); err != nil {
		return resp.StatusCode, err
	}

	if result == nil {
		return resp.StatusCode, nil
	}
	if raw, ok := result.(*[]byte); ok {
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return resp.StatusCode, &TransportError{Op: cfg.op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
		}
		*raw = data
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(result); err != nil {
		return resp.StatusCode, &TransportError{Op: cfg.op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.StatusCode, nil
}

func checkStatus(cfg requestConfig, code int) error {
	if cfg.ignoreStatus || (code >= 200 && code < 300) {
		return nil
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Op: cfg.op, Status: code, Err: newStatusError(code)}
	case code == http.StatusNotFound && cfg.notFound != nil:
		return cfg.notFound
	case code >= 400 && code < 500 && cfg.rejectClientErrors:
		return fmt.Errorf("%w: %w", errRejected, newStatusError(code))
	default:
		return &TransportError{Op: cfg.op, Status: code, Err: newStatusError(code)}
	}
}

// doRequestWithRateLimit executes req, retrying HTTP 429 responses:
//   - c.maxRetries attempts after the first
//   - exponential backoff from c.backoffBase, doubling per attempt
//   - a Retry-After header in seconds overrides the computed delay
//
// The token bucket is consulted before every attempt.
func (c *Client) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		metrics.RemoteRateLimited.Inc()

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries: %w", c.maxRetries, newStatusError(http.StatusTooManyRequests))
		}

		retryDelay := c.backoffBase * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				retryDelay = time.Duration(seconds) * time.Second
			}
		}

		logging.Warn().
			Str("path", req.URL.Path).
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Compit API rate limited (HTTP 429), retrying")

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("unreachable code: retry loop should return or error")
}
