package cfg

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/homeclimate/thermoms/temp"
)

// Statistical parameter types.
const (
	StatsTempDelta   = "temp_delta"
	StatsCurrentTemp = "current_temp"
)

type (
	// TempValue decodes a YAML scalar that is either a number or the
	// token "OFF" into a temperature.
	TempValue struct {
		temp.Temp
	}

	// Delay decodes a YAML duration string like "3s".
	Delay struct {
		time.Duration
	}

	// Device holds one thermostat's configuration.
	Device struct {
		ID                    string     `yaml:"id"`
		Delta                 *TempValue `yaml:"delta"`
		MinTemp               *TempValue `yaml:"min_temp"`
		MaxTemp               *TempValue `yaml:"max_temp"`
		OffTemp               *TempValue `yaml:"off_temp"`
		SupportsOpModes       *bool      `yaml:"supports_opmodes"`
		OpModeOn              string     `yaml:"opmode_on"`
		OpModeOff             string     `yaml:"opmode_off"`
		OpModeOnServiceAttr   string     `yaml:"opmode_on_service_attr"`
		OpModeOffServiceAttr  string     `yaml:"opmode_off_service_attr"`
		OpModeStateAttr       string     `yaml:"opmode_state_attr"`
		TargetTempServiceAttr string     `yaml:"target_temp_service_attr"`
		TargetTempStateAttr   string     `yaml:"target_temp_state_attr"`
		CurrentTempStateAttr  *string    `yaml:"current_temp_state_attr"`
	}

	// Zone groups the thermostats of one room or area.
	Zone struct {
		Name        string   `yaml:"name"`
		Thermostats []Device `yaml:"thermostats"`
	}

	// StatsParam holds one statistical parameter's configuration.
	// Omitting off_value excludes off devices from the delta instead
	// of substituting a value.
	StatsParam struct {
		Name     string             `yaml:"name"`
		Type     string             `yaml:"type"`
		Delay    Delay              `yaml:"delay"`
		OffValue *float64           `yaml:"off_value"`
		Weights  map[string]float64 `yaml:"weights"`
		Factors  map[string]float64 `yaml:"factors"`
		Zones    []string           `yaml:"zones"`
	}

	// Topology is the zone file contents: the controlled thermostats
	// grouped in zones plus the statistical parameters over them.
	Topology struct {
		Zones []Zone       `yaml:"zones"`
		Stats []StatsParam `yaml:"stats"`
	}
)

// UnmarshalYAML .
func (d *Delay) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalYAML .
func (t *TempValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := temp.FromValue(raw)
	if err != nil {
		return err
	}
	t.Temp = v
	return nil
}

// LoadTopology reads, defaults and validates the zone file.
func LoadTopology(path string) (*Topology, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zones file: %s", err)
	}

	var t Topology
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("zones file: %s", err)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Topology) validate() error {
	if len(t.Zones) == 0 {
		return fmt.Errorf("zones file: no zones configured")
	}

	zones := map[string]bool{}
	devices := map[string]bool{}
	for _, z := range t.Zones {
		if z.Name == "" {
			return fmt.Errorf("zones file: zone without a name")
		}
		if zones[z.Name] {
			return fmt.Errorf("zones file: duplicate zone %q", z.Name)
		}
		zones[z.Name] = true

		for _, d := range z.Thermostats {
			if d.ID == "" {
				return fmt.Errorf("zones file: thermostat without an id in zone %q", z.Name)
			}
			if devices[d.ID] {
				return fmt.Errorf("zones file: duplicate thermostat %q", d.ID)
			}
			devices[d.ID] = true

			if d.Delta != nil && d.Delta.IsOff() {
				return fmt.Errorf("zones file: thermostat %q: delta must not be OFF", d.ID)
			}
			if d.MinTemp != nil && d.MinTemp.IsOff() {
				return fmt.Errorf("zones file: thermostat %q: min_temp must not be OFF", d.ID)
			}
			if d.MaxTemp != nil && d.MaxTemp.IsOff() {
				return fmt.Errorf("zones file: thermostat %q: max_temp must not be OFF", d.ID)
			}
		}
	}

	params := map[string]bool{}
	for _, s := range t.Stats {
		if s.Name == "" {
			return fmt.Errorf("zones file: statistical parameter without a name")
		}
		if params[s.Name] {
			return fmt.Errorf("zones file: duplicate statistical parameter %q", s.Name)
		}
		params[s.Name] = true

		if s.Type != StatsTempDelta && s.Type != StatsCurrentTemp {
			return fmt.Errorf("zones file: parameter %q: unknown type %q", s.Name, s.Type)
		}
		for id, w := range s.Weights {
			if w < 0 {
				return fmt.Errorf("zones file: parameter %q: negative weight for %q", s.Name, id)
			}
		}
		for id, f := range s.Factors {
			if f <= 0 {
				return fmt.Errorf("zones file: parameter %q: factor for %q must be positive", s.Name, id)
			}
		}
		for _, z := range s.Zones {
			if !zones[z] {
				return fmt.Errorf("zones file: parameter %q: unknown zone %q", s.Name, z)
			}
		}
	}

	return nil
}

// ObservedZones returns the zones the parameter observes: the named
// ones, or all of them when none are named.
func (t *Topology) ObservedZones(s StatsParam) []Zone {
	if len(s.Zones) == 0 {
		return t.Zones
	}
	var zones []Zone
	for _, name := range s.Zones {
		for _, z := range t.Zones {
			if z.Name == name {
				zones = append(zones, z)
			}
		}
	}
	return zones
}
