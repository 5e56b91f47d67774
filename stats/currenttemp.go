package stats

import (
	"github.com/homeclimate/thermoms/log"
)

type (
	// CurrentTempCfg holds the per-device weight overrides.
	CurrentTempCfg struct {
		Weights map[string]float64
	}

	// CurrentTemp collects the measured temperatures of all devices
	// that report one.
	CurrentTemp struct {
		cfg     CurrentTempCfg
		devices []Device
		log     log.Logger
	}
)

// NewCurrentTemp creates a measured-temperature collector over the
// devices.
func NewCurrentTemp(c CurrentTempCfg, devices []Device, l log.Logger) *CurrentTemp {
	return &CurrentTemp{cfg: c, devices: devices, log: l.With("component", "stats")}
}

// Collect returns one weighted value per initialized device with a
// numeric measured temperature.
func (c *CurrentTemp) Collect() ([]WeightedValue, error) {
	values := []WeightedValue{}
	for _, dev := range c.devices {
		if !dev.IsInitialized() {
			continue
		}

		weight := 1.0
		if w, ok := c.cfg.Weights[dev.ID()]; ok {
			weight = w
		}
		if weight == 0 {
			continue
		}

		current, ok := dev.Current()
		if !ok || current.IsOff() {
			continue
		}

		cur, _ := current.Float()
		v := Weighted(cur, weight)
		c.log.Debugf("value for %s is %v", dev.ID(), v)
		values = append(values, v)
	}
	return values, nil
}
