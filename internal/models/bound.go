// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

type boundKind uint8

const (
	boundAbsent boundKind = iota
	boundLiteral
	boundLive
)

// Bound is a declared min or max. It is either absent, a literal number,
// or a marker meaning "use the live bound reported with the value".
//
// On the wire a number is a literal, null or a missing key is absent, and
// anything else (the catalog uses parameter-code strings) means live.
type Bound struct {
	value float64
	kind  boundKind
}

// LiteralBound returns a bound fixed at v.
func LiteralBound(v float64) Bound {
	return Bound{value: v, kind: boundLiteral}
}

// LiveBound returns a bound resolved from the live parameter value.
func LiveBound() Bound {
	return Bound{kind: boundLive}
}

// Declared reports whether the declaration names a bound at all.
func (b Bound) Declared() bool {
	return b.kind != boundAbsent
}

// Literal returns the fixed value when the bound is a literal.
func (b Bound) Literal() (float64, bool) {
	return b.value, b.kind == boundLiteral
}

// Resolve returns the literal when present, otherwise live.
func (b Bound) Resolve(live *float64) (float64, bool) {
	if b.kind == boundLiteral {
		return b.value, true
	}
	if live != nil {
		return *live, true
	}
	return 0, false
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*b = Bound{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*b = LiteralBound(f)
			return nil
		}
		*b = LiveBound()
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*b = LiveBound()
		return nil //nolint:nilerr // non-numeric bound means "use live value"
	}
	*b = LiteralBound(f)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b Bound) MarshalJSON() ([]byte, error) {
	switch b.kind {
	case boundLiteral:
		return strconv.AppendFloat(nil, b.value, 'f', -1, 64), nil
	case boundLive:
		return []byte(`"live"`), nil
	default:
		return []byte("null"), nil
	}
}
