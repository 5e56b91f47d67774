package cfg

import (
	"github.com/homeclimate/thermoms/temp"
	"github.com/homeclimate/thermoms/therm"
)

// Thermostat defaults matching the common climate integration
// attribute names.
const (
	defaultOpModeOn        = "heat"
	defaultOpModeOff       = "off"
	defaultOpModeAttr      = "operation_mode"
	defaultTargetTempAttr  = "temperature"
	defaultCurrentTempAttr = "current_temperature"
)

// ThermConfig resolves the device's YAML configuration into the
// thermostat unit's config, applying defaults.
func (d Device) ThermConfig() therm.Config {
	c := therm.Config{
		ID:                    d.ID,
		Delta:                 temp.New(0),
		OffTemp:               temp.Off,
		SupportsOpModes:       true,
		OpModeOn:              defaultOpModeOn,
		OpModeOff:             defaultOpModeOff,
		OpModeOnServiceAttr:   defaultOpModeAttr,
		OpModeOffServiceAttr:  defaultOpModeAttr,
		OpModeStateAttr:       defaultOpModeAttr,
		TargetTempServiceAttr: defaultTargetTempAttr,
		TargetTempStateAttr:   defaultTargetTempAttr,
		CurrentTempStateAttr:  defaultCurrentTempAttr,
	}

	if d.Delta != nil {
		c.Delta = d.Delta.Temp
	}
	if d.MinTemp != nil {
		v := d.MinTemp.Temp
		c.MinTemp = &v
	}
	if d.MaxTemp != nil {
		v := d.MaxTemp.Temp
		c.MaxTemp = &v
	}
	if d.OffTemp != nil {
		c.OffTemp = d.OffTemp.Temp
	}
	if d.SupportsOpModes != nil {
		c.SupportsOpModes = *d.SupportsOpModes
	}
	if d.OpModeOn != "" {
		c.OpModeOn = d.OpModeOn
	}
	if d.OpModeOff != "" {
		c.OpModeOff = d.OpModeOff
	}
	if d.OpModeOnServiceAttr != "" {
		c.OpModeOnServiceAttr = d.OpModeOnServiceAttr
	}
	if d.OpModeOffServiceAttr != "" {
		c.OpModeOffServiceAttr = d.OpModeOffServiceAttr
	}
	if d.OpModeStateAttr != "" {
		c.OpModeStateAttr = d.OpModeStateAttr
	}
	if d.TargetTempServiceAttr != "" {
		c.TargetTempServiceAttr = d.TargetTempServiceAttr
	}
	if d.TargetTempStateAttr != "" {
		c.TargetTempStateAttr = d.TargetTempStateAttr
	}
	if d.CurrentTempStateAttr != nil {
		// an explicit empty string disables current-temperature decoding
		c.CurrentTempStateAttr = *d.CurrentTempStateAttr
	}

	return c
}
