// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Credentials is the standalone credential file used by compitctl:
//
//	email: user@example.com
//	password: secret
type Credentials struct {
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

// LoadCredentials reads a YAML credential file.
func LoadCredentials(path string) (*Credentials, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load credentials file %s: %w", path, err)
	}

	creds := &Credentials{}
	if err := k.Unmarshal("", creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("credentials file %s must set email and password", path)
	}
	return creds, nil
}

// ApplyCredentials overrides the account credentials.
func (c *Config) ApplyCredentials(creds *Credentials) {
	if creds == nil {
		return
	}
	c.Compit.Email = creds.Email
	c.Compit.Password = creds.Password
}
