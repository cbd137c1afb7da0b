// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

// DeviceDefinitions is the catalog document: one definition per device type.
type DeviceDefinitions struct {
	Devices []DeviceDefinition `json:"devices"`
}

// DeviceDefinition describes every device sharing a type code.
type DeviceDefinition struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Code       int         `json:"code"`
	Class      int         `json:"class"`
	Parameters []Parameter `json:"parameters"`
}

// Parameter is the declaration of one reading or setting on a device type.
type Parameter struct {
	Code      string            `json:"parameter_code"`
	Label     string            `json:"label"`
	ReadWrite string            `json:"ReadWrite"`
	Unit      string            `json:"unit,omitempty"`
	MinValue  Bound             `json:"min_value"`
	MaxValue  Bound             `json:"max_value"`
	Details   []ParameterDetail `json:"details"`
}

// ReadOnly reports whether the parameter is declared read-only ("R").
func (p *Parameter) ReadOnly() bool {
	return p.ReadWrite == "R"
}

// HasDetails reports whether the declaration carries an enumerated domain.
// An empty but present list still counts, matching the remote catalog.
func (p *Parameter) HasDetails() bool {
	return p.Details != nil
}

// Detail returns the enumerated entry whose Param matches code.
func (p *Parameter) Detail(code string) (ParameterDetail, bool) {
	for _, d := range p.Details {
		if d.Param == code {
			return d, true
		}
	}
	return ParameterDetail{}, false
}

// ParameterDetail is one entry of an enumerated parameter domain.
type ParameterDetail struct {
	State       int    `json:"state"`
	Description string `json:"description"`
	Param       string `json:"param"`
}

// DefinitionKey indexes the catalog by (class, type code).
type DefinitionKey struct {
	Class int
	Code  int
}

// Catalog is an immutable, indexed view over DeviceDefinitions.
type Catalog struct {
	byKey  map[DefinitionKey]*DeviceDefinition
	byCode map[int]*DeviceDefinition
	size   int
}

// NewCatalog indexes defs. When two definitions share a key the first wins.
func NewCatalog(defs *DeviceDefinitions) *Catalog {
	c := &Catalog{
		byKey:  make(map[DefinitionKey]*DeviceDefinition),
		byCode: make(map[int]*DeviceDefinition),
	}
	if defs == nil {
		return c
	}
	for i := range defs.Devices {
		d := &defs.Devices[i]
		key := DefinitionKey{Class: d.Class, Code: d.Code}
		if _, ok := c.byKey[key]; !ok {
			c.byKey[key] = d
		}
		if _, ok := c.byCode[d.Code]; !ok {
			c.byCode[d.Code] = d
		}
	}
	c.size = len(defs.Devices)
	return c
}

// Resolve finds the definition for a device, preferring an exact
// (class, type) match and falling back to the type code alone.
func (c *Catalog) Resolve(device Device) (*DeviceDefinition, bool) {
	if c == nil {
		return nil, false
	}
	if d, ok := c.byKey[DefinitionKey{Class: device.Class, Code: device.Type}]; ok {
		return d, true
	}
	d, ok := c.byCode[device.Type]
	return d, ok
}

// Len returns the number of definitions in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return c.size
}
