package stats

import (
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/temp"
)

type (
	// Device is the read-only view of a thermostat unit the aggregators
	// observe.
	Device interface {
		ID() string
		IsInitialized() bool
		Reported() (temp.Temp, bool)
		Current() (temp.Temp, bool)
	}

	// TempDeltaCfg holds the per-parameter off-value and the per-device
	// weight/factor overrides.
	TempDeltaCfg struct {
		// OffValue is substituted for devices that are off. When nil,
		// off devices are excluded instead.
		OffValue *float64
		Weights  map[string]float64
		Factors  map[string]float64
	}

	// TempDelta collects, per device, the signed difference between the
	// measured and the device-reported target temperature.
	TempDelta struct {
		cfg     TempDeltaCfg
		devices []Device
		log     log.Logger
	}
)

// NewTempDelta creates a temperature-delta collector over the devices.
func NewTempDelta(c TempDeltaCfg, devices []Device, l log.Logger) *TempDelta {
	return &TempDelta{cfg: c, devices: devices, log: l.With("component", "stats")}
}

// Collect returns one weighted value per initialized device. A device
// counts as off when either its reported target or its measured value
// is OFF or missing; this is deliberately permissive.
func (d *TempDelta) Collect() ([]WeightedValue, error) {
	values := []WeightedValue{}
	for _, dev := range d.devices {
		if !dev.IsInitialized() {
			continue
		}

		weight := 1.0
		if w, ok := d.cfg.Weights[dev.ID()]; ok {
			weight = w
		}
		if weight == 0 {
			continue
		}

		reported, haveReported := dev.Reported()
		current, haveCurrent := dev.Current()

		var delta float64
		if !haveReported || !haveCurrent || reported.IsOff() || current.IsOff() {
			if d.cfg.OffValue == nil {
				continue
			}
			delta = *d.cfg.OffValue
		} else {
			cur, _ := current.Float()
			target, _ := reported.Float()
			delta = cur - target
			if f, ok := d.cfg.Factors[dev.ID()]; ok {
				delta *= f
			}
		}

		v := Weighted(delta, weight)
		d.log.Debugf("value for %s is %v", dev.ID(), v)
		values = append(values, v)
	}
	return values, nil
}
