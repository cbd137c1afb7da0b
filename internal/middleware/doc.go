// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge


/*
Package middleware provides the HTTP middleware shared by the API router.

Key Components:

  - RequestID: X-Request-ID propagation plus request and correlation IDs
    in the logging context
  - PrometheusMetrics: request count and latency per chi route pattern
  - AccessLog: one structured log line per request

Each middleware has the http.HandlerFunc shape; the api package adapts
them to chi with a small wrapper:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.AccessLog))
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(chiMiddleware(middleware.PrometheusMetrics))
	    ...
	})

CORS, rate limiting, compression and panic recovery come from go-chi/cors,
go-chi/httprate and chi's own middleware package and are wired in the
router.
*/
package middleware
