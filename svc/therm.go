package svc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/metric"
	"github.com/homeclimate/thermoms/temp"
	"github.com/homeclimate/thermoms/therm"
)

type (
	// ThermStorer is a contract for the thermostat snapshot storer.
	ThermStorer interface {
		SaveThermState(*ThermState) error
		GetThermsStates() ([]ThermState, error)
	}

	// StatePublisher is a contract for the internal pub/sub the
	// snapshots fan out on.
	StatePublisher interface {
		Publish(msg interface{}, channel string) (int64, error)
	}

	// ThermBus is a contract for the climate bus: it carries the
	// outgoing device commands and the incoming state reports.
	ThermBus interface {
		therm.CommandWriter
		SubscribeReports(chan<- Report) error
	}

	// ThermServiceCfg is used to initialize an instance of thermService.
	ThermServiceCfg struct {
		Log      log.Logger
		Ctrl     Ctrl
		Metric   *metric.Metric
		Store    ThermStorer
		Pub      StatePublisher
		Bus      ThermBus
		Topology *cfg.Topology
	}

	// thermService owns the thermostat units: it consumes device
	// reports, applies desired-value updates and keeps the stored
	// snapshots current. Reports and updates are processed one at a
	// time so per-device ordering is preserved.
	thermService struct {
		log    log.Logger
		ctrl   Ctrl
		metric *metric.Metric
		storer ThermStorer
		pub    StatePublisher
		bus    ThermBus

		units map[string]*therm.Thermostat
		ids   []string

		reportChan  chan Report
		desiredChan chan desiredUpdate
	}

	desiredUpdate struct {
		id    string
		value temp.Temp
	}
)

// NewThermService creates and initializes a new instance of thermService.
func NewThermService(c *ThermServiceCfg) *thermService { //nolint
	s := &thermService{
		log:         c.Log.With("component", "therm"),
		ctrl:        c.Ctrl,
		metric:      c.Metric,
		storer:      c.Store,
		pub:         c.Pub,
		bus:         c.Bus,
		units:       make(map[string]*therm.Thermostat),
		reportChan:  make(chan Report),
		desiredChan: make(chan desiredUpdate),
	}

	for _, z := range c.Topology.Zones {
		for _, d := range z.Thermostats {
			tc := d.ThermConfig()
			s.units[tc.ID] = therm.New(tc, c.Bus, c.Log)
			s.ids = append(s.ids, tc.ID)
		}
	}
	sort.Strings(s.ids)

	return s
}

// Run launches the service: it restores the stored desired values,
// subscribes to device reports and starts the processing loop.
func (s *thermService) Run() {
	s.log.With("event", log.EventComponentStarted).Infof("")

	defer func() {
		if r := recover(); r != nil {
			s.log.With("event", log.EventPanic).Errorf("func Run: %s", r)
			s.metric.ErrorCounter(log.EventPanic)
			s.ctrl.Terminate()
		}
	}()

	s.restoreDesired()

	if err := s.bus.SubscribeReports(s.reportChan); err != nil {
		s.log.Fatalf("func SubscribeReports: %s", err)
	}

	go s.listenToTermination()
	go s.run()
}

func (s *thermService) listenToTermination() {
	<-s.ctrl.StopChan
	s.log.With("event", log.EventComponentShutdown).Infof("")
	_ = s.log.Flush()
}

// restoreDesired re-seeds the desired values from the stored
// snapshots. Nothing is sent: the device state is unknown until the
// first report arrives.
func (s *thermService) restoreDesired() {
	states, err := s.storer.GetThermsStates()
	if err != nil {
		s.log.Errorf("func GetThermsStates: %s", err)
		return
	}
	for _, st := range states {
		unit, ok := s.units[st.ID]
		if !ok || st.Desired == "" {
			continue
		}
		v, err := temp.Parse(st.Desired)
		if err != nil {
			s.log.Errorf("stored desired value of %s: %s", st.ID, err)
			continue
		}
		unit.SetDesired(v)
		s.log.Infof("restored desired value %s for %s", v, st.ID)
	}
}

func (s *thermService) run() {
	for {
		select {
		case r := <-s.reportChan:
			s.processReport(r)
		case u := <-s.desiredChan:
			s.processDesired(u)
		case <-s.ctrl.StopChan:
			return
		}
	}
}

func (s *thermService) processReport(r Report) {
	unit, ok := s.units[r.ThermID]
	if !ok {
		s.log.Warnf("report for unknown thermostat %q", r.ThermID)
		return
	}

	s.metric.ReportConsumed(r.ThermID)

	target, err := unit.HandleReport(r.Attrs)
	if err != nil {
		s.metric.ErrorCounter(log.EventReportDiscarded)
		return
	}

	s.resync(unit, target)
	s.snapshot(unit)
}

// resync re-sends the desired value when the device reports a target
// that differs from what the pipeline would command, e.g. after a
// manual adjustment at the device.
func (s *thermService) resync(unit *therm.Thermostat, reported temp.Temp) {
	desired, ok := unit.Desired()
	if !ok {
		return
	}
	cmd, ok := unit.Command(desired)
	if !ok {
		return
	}
	if !cmd.Equal(reported) {
		s.log.Infof("thermostat %s reports %s, want %s, resending", unit.ID(), reported, cmd)
		unit.Send()
		s.metric.CommandWritten(unit.ID())
	}
}

func (s *thermService) processDesired(u desiredUpdate) {
	unit := s.units[u.id]
	unit.SetDesired(u.value)
	unit.Send()
	s.metric.CommandWritten(u.id)
	s.snapshot(unit)
}

func (s *thermService) snapshot(unit *therm.Thermostat) {
	st := stateOf(unit)

	if err := s.storer.SaveThermState(st); err != nil {
		s.log.Errorf("func SaveThermState: %s", err)
	}

	b, err := json.Marshal(st)
	if err != nil {
		s.log.Errorf("func Marshal: %s", err)
		return
	}
	if _, err := s.pub.Publish(b, ThermStateChan); err != nil {
		s.log.Errorf("func Publish: %s", err)
	}
}

func stateOf(unit *therm.Thermostat) *ThermState {
	st := &ThermState{ID: unit.ID()}
	if v, ok := unit.Desired(); ok {
		st.Desired = v.String()
	}
	if v, ok := unit.Reported(); ok {
		st.Reported = v.String()
	}
	if v, ok := unit.Current(); ok {
		st.Current = v.String()
	}
	return st
}

// SetDesired hands a new desired temperature to the thermostat. The
// command is sent asynchronously by the processing loop.
func (s *thermService) SetDesired(id string, v temp.Temp) error {
	if _, ok := s.units[id]; !ok {
		return fmt.Errorf("unknown thermostat %q", id)
	}
	s.desiredChan <- desiredUpdate{id: id, value: v}
	return nil
}

// Unit returns the thermostat unit with the given id.
func (s *thermService) Unit(id string) (*therm.Thermostat, bool) {
	unit, ok := s.units[id]
	return unit, ok
}

// Therm returns a live snapshot of one thermostat.
func (s *thermService) Therm(id string) (*ThermState, error) {
	unit, ok := s.units[id]
	if !ok {
		return nil, fmt.Errorf("unknown thermostat %q", id)
	}
	return stateOf(unit), nil
}

// Therms returns live snapshots of all the thermostats, ordered by id.
func (s *thermService) Therms() []ThermState {
	states := make([]ThermState, 0, len(s.ids))
	for _, id := range s.ids {
		states = append(states, *stateOf(s.units[id]))
	}
	return states
}
