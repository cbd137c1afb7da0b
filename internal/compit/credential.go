// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package compit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the bearer token held by a Client. The Compit API sends the
// token verbatim in the Authorization header.
type Credential struct {
	Token    string
	IssuedAt time.Time

	// ExpiresAt is read from the token's exp claim when the token is a JWT.
	// Zero means the expiry is unknown.
	ExpiresAt time.Time
}

// NewCredential wraps token, reading its expiry without verifying the
// signature. The signing key belongs to the vendor; only exp is used.
func NewCredential(token string, issuedAt time.Time) *Credential {
	cred := &Credential{Token: token, IssuedAt: issuedAt}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return cred
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time
	}
	return cred
}

// ExpiresWithin reports whether the token expires before now+d. Tokens
// with an unknown expiry never report true.
func (c *Credential) ExpiresWithin(d time.Duration, now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(c.ExpiresAt)
}

// Usable reports whether the credential holds a token that has not expired.
func (c *Credential) Usable(now time.Time) bool {
	return c != nil && c.Token != "" && !c.ExpiresWithin(0, now)
}
