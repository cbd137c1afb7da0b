// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package compit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Client talks to the Compit mobile API. It holds exactly one credential;
// a failed Authenticate leaves the previous credential in place.
type Client struct {
	baseURL         string
	uid             string
	label           string
	definitionsFile string

	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration

	mu   sync.RWMutex
	cred *Credential
}

type authorizeRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UID      string `json:"uid"`
	Label    string `json:"label"`
}

type registerClientRequest struct {
	FCMToken *string `json:"fcm_token"`
	UID      string  `json:"uid"`
	Label    string  `json:"label"`
}

type updateParamsRequest struct {
	Values []paramWrite `json:"values"`
}

type paramWrite struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// NewClient creates a client from the compit configuration section.
func NewClient(cfg *config.CompitConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		uid:             cfg.UID,
		label:           cfg.Label,
		definitionsFile: cfg.DefinitionsFile,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         rate.NewLimiter(limit, burst),
		maxRetries:      max(cfg.MaxRetries, 0),
		backoffBase:     time.Second,
	}
}

// Credential returns the held credential, or nil before the first
// successful Authenticate.
func (c *Client) Credential() *Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred
}

func (c *Client) setCredential(cred *Credential) {
	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()
}

// Authenticate exchanges account credentials for a bearer token. When the
// service answers 422 the bridge is not yet a registered client of the
// account: the provisional token is used to register it and authorization
// is retried once.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	info, err := c.authorize(ctx, email, password, true)
	if err != nil {
		metrics.RecordAuthentication(false)
		return nil, err
	}

	cred := NewCredential(info.Token, time.Now())
	c.setCredential(cred)
	metrics.RecordAuthentication(true)

	logging.Info().
		Int("gates", len(info.Gates)).
		Int("devices", info.DeviceCount()).
		Str("token", logging.SanitizeToken(cred.Token)).
		Msg("Authenticated with Compit API")
	return cred, nil
}

func (c *Client) authorize(ctx context.Context, email, password string, allowRegister bool) (*models.SystemInfo, error) {
	var info models.SystemInfo
	status, err := c.doRequest(ctx, requestConfig{
		op:           "authorize",
		method:       http.MethodPost,
		path:         "/authorize",
		body:         authorizeRequest{Email: email, Password: password, UID: c.uid, Label: c.label},
		anonymous:    true,
		ignoreStatus: allowRegister,
	}, &info)

	// With ignoreStatus set, a decode failure on an error page is reported
	// as the status it came with. Every authorize failure is an AuthError;
	// 5xx keeps its TransportError in the chain.
	if allowRegister && status != 0 && status != http.StatusUnprocessableEntity && (status < 200 || status >= 300) {
		return nil, toAuthError("authorize", checkStatus(requestConfig{op: "authorize"}, status))
	}
	if err != nil {
		return nil, toAuthError("authorize", err)
	}

	if status == http.StatusUnprocessableEntity {
		if !allowRegister || info.Token == "" {
			return nil, &AuthError{Op: "authorize", Status: status, Err: newStatusError(status)}
		}
		logging.Info().Str("uid", c.uid).Msg("Registering bridge as Compit API client")
		if _, err := c.doRequest(ctx, requestConfig{
			op:     "register_client",
			method: http.MethodPost,
			path:   "/clients",
			body:   registerClientRequest{UID: c.uid, Label: c.label},
			token:  info.Token,
		}, nil); err != nil {
			return nil, toAuthError("register_client", err)
		}
		return c.authorize(ctx, email, password, false)
	}

	if info.Token == "" {
		return nil, &AuthError{Op: "authorize", Status: status, Err: fmt.Errorf("response carried no token")}
	}
	return &info, nil
}

// toAuthError converts any authentication-path failure into an AuthError,
// keeping transport failures distinguishable through the wrapped chain.
func toAuthError(op string, err error) error {
	if IsAuthError(err) {
		return err
	}
	status := 0
	var te *TransportError
	if errors.As(err, &te) {
		status = te.Status
	}
	return &AuthError{Op: op, Status: status, Err: err}
}

// FetchTopology returns the gates and devices of the account.
func (c *Client) FetchTopology(ctx context.Context) ([]models.Gate, error) {
	var info models.SystemInfo
	if _, err := c.doRequest(ctx, requestConfig{
		op:     "fetch_topology",
		method: http.MethodGet,
		path:   "/gates",
	}, &info); err != nil {
		return nil, err
	}
	return info.Gates, nil
}

// FetchDeviceDefinitions returns the definition catalog, read from the
// configured definitions file when one is set.
func (c *Client) FetchDeviceDefinitions(ctx context.Context) (*models.DeviceDefinitions, error) {
	if c.definitionsFile != "" {
		return LoadDefinitionsFile(c.definitionsFile)
	}

	var defs models.DeviceDefinitions
	if _, err := c.doRequest(ctx, requestConfig{
		op:     "fetch_definitions",
		method: http.MethodGet,
		path:   "/device-definitions",
	}, &defs); err != nil {
		return nil, err
	}
	return &defs, nil
}

// FetchParameterState returns the live parameter snapshot of one device.
func (c *Client) FetchParameterState(ctx context.Context, deviceID int) (*models.DeviceState, error) {
	id := strconv.Itoa(deviceID)
	var state models.DeviceState
	if _, err := c.doRequest(ctx, requestConfig{
		op:       "fetch_state",
		method:   http.MethodGet,
		path:     "/devices/" + id + "/state",
		notFound: &NotFoundError{Resource: "device", Key: id},
	}, &state); err != nil {
		return nil, err
	}
	state.FetchedAt = time.Now()
	return &state, nil
}

// UpdateParameter writes one parameter value. A write the service declines
// is reported as (false, nil); auth and transport failures are errors.
// Any acknowledgement other than a literal JSON false counts as accepted.
func (c *Client) UpdateParameter(ctx context.Context, deviceID int, code string, value interface{}) (bool, error) {
	logging.Info().Str("parameter", code).Interface("value", value).Int("device_id", deviceID).Msg("Set parameter")

	var body []byte
	_, err := c.doRequest(ctx, requestConfig{
		op:                 "update_parameter",
		method:             http.MethodPut,
		path:               "/devices/" + strconv.Itoa(deviceID) + "/params",
		body:               updateParamsRequest{Values: []paramWrite{{Code: code, Value: value}}},
		rejectClientErrors: true,
	}, &body)
	if err != nil {
		if isRejected(err) {
			logging.Warn().Err(err).Str("parameter", code).Int("device_id", deviceID).Msg("Write rejected by Compit API")
			return false, nil
		}
		return false, err
	}

	return !bytes.Equal(bytes.TrimSpace(body), []byte("false")), nil
}
