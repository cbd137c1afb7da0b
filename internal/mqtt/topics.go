// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package mqtt

import "strings"

// Bridge status payloads on Topics.BridgeStatus.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Topics builds the bridge's topic names under a prefix.
//
//	{prefix}/state/{unique_id}    retained entity state (JSON)
//	{prefix}/command/{unique_id}  raw value to write
//	{prefix}/bridge/status        online / offline (retained, LWT)
type Topics struct {
	Prefix string
}

// State returns the retained state topic of an entity.
func (t Topics) State(uniqueID string) string {
	return t.Prefix + "/state/" + uniqueID
}

// Command returns the command topic of an entity.
func (t Topics) Command(uniqueID string) string {
	return t.Prefix + "/command/" + uniqueID
}

// CommandWildcard matches every command topic.
func (t Topics) CommandWildcard() string {
	return t.Prefix + "/command/+"
}

// BridgeStatus is the bridge availability topic.
func (t Topics) BridgeStatus() string {
	return t.Prefix + "/bridge/status"
}

// EntityFromCommand extracts the unique ID from a command topic.
func (t Topics) EntityFromCommand(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, t.Prefix+"/command/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
