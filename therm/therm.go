// Package therm implements the synchronization unit for a single
// thermostat: it turns a desired temperature into device commands and
// decodes asynchronous device reports back into temperature values.
package therm

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/temp"
)

// ErrUnrecognizedMode is returned when a device report carries an
// operation mode that is neither the configured on nor off mode. The
// report is discarded and prior state retained.
var ErrUnrecognizedMode = errors.New("unrecognized operation mode")

type (
	// CommandWriter is a contract for the transport the thermostat
	// commands are written to. Both writes are fire-and-forget.
	CommandWriter interface {
		WriteOpMode(devID, mode, attr string) error
		WriteTargetTemp(devID, attr string, value float64) error
	}

	// Config holds the device-specific behavior of one thermostat,
	// resolved once at construction.
	Config struct {
		ID                    string
		Delta                 temp.Temp
		MinTemp               *temp.Temp
		MaxTemp               *temp.Temp
		OffTemp               temp.Temp
		SupportsOpModes       bool
		OpModeOn              string
		OpModeOff             string
		OpModeOnServiceAttr   string
		OpModeOffServiceAttr  string
		OpModeStateAttr       string
		TargetTempServiceAttr string
		TargetTempStateAttr   string
		CurrentTempStateAttr  string
	}

	// Thermostat owns the desired/reported/measured values of one
	// device and the two pipelines that keep them in sync.
	Thermostat struct {
		cfg    Config
		log    log.Logger
		writer CommandWriter
		events *Registry

		mu       sync.RWMutex
		desired  *temp.Temp
		reported *temp.Temp
		current  *temp.Temp
	}
)

// New creates and initializes a new thermostat unit.
func New(c Config, w CommandWriter, l log.Logger) *Thermostat {
	return &Thermostat{
		cfg:    c,
		writer: w,
		log:    l.With("component", "therm", "id", c.ID),
		events: NewRegistry(),
	}
}

// ID returns the controlled device's identity.
func (t *Thermostat) ID() string {
	return t.cfg.ID
}

// Events returns the unit's event registry.
func (t *Thermostat) Events() *Registry {
	return t.events
}

// SetDesired stores the value the scheduling policy wants the device
// to reach. It does not send anything by itself.
func (t *Thermostat) SetDesired(v temp.Temp) {
	t.mu.Lock()
	t.desired = &v
	t.mu.Unlock()
}

// Desired returns the last desired value set by the scheduling policy.
func (t *Thermostat) Desired() (temp.Temp, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.desired == nil {
		return temp.Temp{}, false
	}
	return *t.desired, true
}

// Reported returns the target temperature the device itself last
// reported.
func (t *Thermostat) Reported() (temp.Temp, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.reported == nil {
		return temp.Temp{}, false
	}
	return *t.reported, true
}

// Current returns the last measured temperature, if the device reports
// one.
func (t *Thermostat) Current() (temp.Temp, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return temp.Temp{}, false
	}
	return *t.current, true
}

// IsInitialized tells whether any device feedback has been received.
func (t *Thermostat) IsInitialized() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reported != nil
}

// Command applies the outgoing transform pipeline to the desired value
// and returns the value to actually send. ok is false when nothing has
// to be sent: the device is being turned off but supports no off mode.
func (t *Thermostat) Command(desired temp.Temp) (cmd temp.Temp, ok bool) {
	v := desired
	if v.IsOff() {
		v = t.cfg.OffTemp
	}

	if !v.IsOff() {
		v = v.Add(t.cfg.Delta)
		if t.cfg.MinTemp != nil && v.Less(*t.cfg.MinTemp) {
			v = *t.cfg.MinTemp
		} else if t.cfg.MaxTemp != nil && t.cfg.MaxTemp.Less(v) {
			v = *t.cfg.MaxTemp
		}
	} else if !t.cfg.SupportsOpModes {
		t.log.With("event", log.EventCmdSuppressed).
			Warnf("not turning off, device supports no off mode; consider configuring an off substitute temperature")
		return temp.Temp{}, false
	}

	return v, true
}

// Send runs the outgoing pipeline on the stored desired value and
// writes the result to the device. The operation-mode and the
// target-temperature writes are independent, both fire-and-forget;
// transport failures are logged, never propagated.
func (t *Thermostat) Send() {
	desired, ok := t.Desired()
	if !ok {
		t.log.Debugf("no desired value set yet, nothing to send")
		return
	}

	cmd, ok := t.Command(desired)
	if !ok {
		return
	}

	if t.cfg.SupportsOpModes {
		mode, attr := t.cfg.OpModeOn, t.cfg.OpModeOnServiceAttr
		if cmd.IsOff() {
			mode, attr = t.cfg.OpModeOff, t.cfg.OpModeOffServiceAttr
		}
		if err := t.writer.WriteOpMode(t.cfg.ID, mode, attr); err != nil {
			t.log.Errorf("func WriteOpMode: %s", err)
		}
	}

	if v, err := cmd.Float(); err == nil {
		if err := t.writer.WriteTargetTemp(t.cfg.ID, t.cfg.TargetTempServiceAttr, v); err != nil {
			t.log.Errorf("func WriteTargetTemp: %s", err)
		}
	}

	t.log.With("event", log.EventCmdSent).Infof("desired [%s] sent as [%s]", desired, cmd)
}

// HandleReport decodes an asynchronous device report. It returns the
// device's authoritative target temperature. On an unrecognized
// operation mode or a malformed target temperature the whole report is
// discarded and prior state is retained; a malformed current
// temperature only skips the current-temperature update.
func (t *Thermostat) HandleReport(attrs map[string]interface{}) (temp.Temp, error) {
	var (
		target    temp.Temp
		targetSet bool
	)

	if t.cfg.SupportsOpModes {
		mode, _ := attrs[t.cfg.OpModeStateAttr].(string)
		t.log.Debugf("attribute %q is %q", t.cfg.OpModeStateAttr, mode)
		switch mode {
		case t.cfg.OpModeOff:
			target, targetSet = temp.Off, true
		case t.cfg.OpModeOn:
		default:
			t.log.With("event", log.EventReportDiscarded).
				Errorf("unknown operation mode %q, ignoring thermostat", mode)
			return temp.Temp{}, errors.Wrapf(ErrUnrecognizedMode, "%q", mode)
		}
	}

	if !targetSet {
		raw := attrs[t.cfg.TargetTempStateAttr]
		t.log.Debugf("attribute %q is %v", t.cfg.TargetTempStateAttr, raw)
		parsed, err := temp.FromValue(raw)
		if err != nil {
			t.log.With("event", log.EventReportDiscarded).
				Errorf("invalid target temperature, ignoring thermostat: %s", err)
			return temp.Temp{}, err
		}
		target = parsed
	}

	// The current temperature is decoded independently so a malformed
	// value never blocks target-temperature detection.
	var (
		current    temp.Temp
		currentSet bool
	)
	if t.cfg.CurrentTempStateAttr != "" {
		raw := attrs[t.cfg.CurrentTempStateAttr]
		t.log.Debugf("attribute %q is %v", t.cfg.CurrentTempStateAttr, raw)
		parsed, err := temp.FromValue(raw)
		if err != nil {
			t.log.Errorf("invalid current temperature, not updating it: %s", err)
		} else {
			current, currentSet = parsed, true
		}
	}

	type event struct {
		name  string
		value temp.Temp
	}
	var events []event

	t.mu.Lock()
	if currentSet && (t.current == nil || !t.current.Equal(current)) {
		c := current
		t.current = &c
		events = append(events, event{EventCurrentTempChanged, current})
	}
	if t.reported == nil || !t.reported.Equal(target) {
		v := target
		t.reported = &v
		events = append(events, event{EventValueChanged, target})
	}
	t.mu.Unlock()

	for _, e := range events {
		if e.name == EventValueChanged {
			t.log.Infof("received target temperature of %s", e.value)
		}
		t.events.Trigger(e.name, t, e.value)
	}

	return target, nil
}
