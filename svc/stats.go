package svc

import (
	"fmt"
	"sort"
	"time"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/metric"
	"github.com/homeclimate/thermoms/stats"
	"github.com/homeclimate/thermoms/temp"
	"github.com/homeclimate/thermoms/therm"
)

type (
	// StatsStorer is a contract for the baseline storer.
	StatsStorer interface {
		SaveStatsBaseline(name string, attrs map[string]float64) error
		GetStatsBaseline(name string) (map[string]float64, error)
	}

	// StatsSink is a contract for the bus side of stats publishing.
	StatsSink interface {
		PublishStats(name string, attrs map[string]float64) error
	}

	// UnitProvider resolves thermostat units by id.
	UnitProvider interface {
		Unit(id string) (*therm.Thermostat, bool)
	}

	// StatsServiceCfg is used to initialize an instance of statsService.
	StatsServiceCfg struct {
		Log      log.Logger
		Ctrl     Ctrl
		Metric   *metric.Metric
		Store    StatsStorer
		Sink     StatsSink
		Units    UnitProvider
		Topology *cfg.Topology
		Delay    time.Duration
	}

	// statsService owns the statistical parameters: it builds one
	// debounced parameter per configuration entry and refreshes it
	// whenever an observed thermostat changes.
	statsService struct {
		log    log.Logger
		ctrl   Ctrl
		metric *metric.Metric
		storer StatsStorer
		params map[string]*stats.Param
		names  []string
	}

	// statsPublisher fans a freshly computed parameter state out to
	// the bus, the baseline store and the prometheus gauges. Only a
	// bus failure fails the publication.
	statsPublisher struct {
		sink   StatsSink
		storer StatsStorer
		metric *metric.Metric
		log    log.Logger
	}
)

// NewStatsService creates and initializes a new instance of statsService.
func NewStatsService(c *StatsServiceCfg) *statsService { //nolint
	l := c.Log.With("component", "stats")
	s := &statsService{
		log:    l,
		ctrl:   c.Ctrl,
		metric: c.Metric,
		storer: c.Store,
		params: make(map[string]*stats.Param),
	}

	pub := &statsPublisher{
		sink:   c.Sink,
		storer: c.Store,
		metric: c.Metric,
		log:    l,
	}

	for _, p := range c.Topology.Stats {
		var devices []stats.Device
		for _, z := range c.Topology.ObservedZones(p) {
			for _, d := range z.Thermostats {
				unit, ok := c.Units.Unit(d.ID)
				if !ok {
					continue
				}
				devices = append(devices, unit)
			}
		}

		var collector stats.Collector
		switch p.Type {
		case cfg.StatsTempDelta:
			collector = stats.NewTempDelta(stats.TempDeltaCfg{
				OffValue: p.OffValue,
				Weights:  p.Weights,
				Factors:  p.Factors,
			}, devices, c.Log)
		case cfg.StatsCurrentTemp:
			collector = stats.NewCurrentTemp(stats.CurrentTempCfg{
				Weights: p.Weights,
			}, devices, c.Log)
		}

		delay := p.Delay.Duration
		if delay <= 0 {
			delay = c.Delay
		}
		param := stats.NewParam(p.Name, stats.NewMinAvgMax(collector), pub, delay, c.Log)
		s.params[p.Name] = param
		s.names = append(s.names, p.Name)

		// every change of an observed unit schedules a refresh
		for _, z := range c.Topology.ObservedZones(p) {
			for _, d := range z.Thermostats {
				unit, ok := c.Units.Unit(d.ID)
				if !ok {
					continue
				}
				refresh := func(*therm.Thermostat, temp.Temp) { param.RequestUpdate() }
				unit.Events().On(therm.EventValueChanged, refresh)
				unit.Events().On(therm.EventCurrentTempChanged, refresh)
			}
		}
	}
	sort.Strings(s.names)

	return s
}

// Run launches the service: it reloads the stored baselines and
// schedules an initial refresh of every parameter.
func (s *statsService) Run() {
	s.log.With("event", log.EventComponentStarted).Infof("")

	defer func() {
		if r := recover(); r != nil {
			s.log.With("event", log.EventPanic).Errorf("func Run: %s", r)
			s.metric.ErrorCounter(log.EventPanic)
			s.ctrl.Terminate()
		}
	}()

	for _, name := range s.names {
		param := s.params[name]
		baseline, err := s.storer.GetStatsBaseline(name)
		if err != nil {
			s.log.Errorf("func GetStatsBaseline: %s", err)
		} else if baseline != nil {
			param.SetBaseline(stats.Attrs(baseline))
			s.log.Infof("restored baseline for %s: %v", name, baseline)
		}
		param.RequestUpdate()
	}

	go s.listenToTermination()
}

func (s *statsService) listenToTermination() {
	<-s.ctrl.StopChan
	s.log.With("event", log.EventComponentShutdown).Infof("")
	_ = s.log.Flush()
}

// Stat returns the last known state of one parameter.
func (s *statsService) Stat(name string) (stats.Attrs, error) {
	param, ok := s.params[name]
	if !ok {
		return nil, fmt.Errorf("unknown statistical parameter %q", name)
	}
	return param.Last(), nil
}

// Stats returns the last known state of every parameter, keyed by
// name.
func (s *statsService) Stats() map[string]stats.Attrs {
	all := make(map[string]stats.Attrs, len(s.names))
	for _, name := range s.names {
		all[name] = s.params[name].Last()
	}
	return all
}

func (p *statsPublisher) Publish(param string, attrs stats.Attrs) error {
	if err := p.sink.PublishStats(param, attrs); err != nil {
		return err
	}
	if err := p.storer.SaveStatsBaseline(param, attrs); err != nil {
		p.log.Errorf("func SaveStatsBaseline: %s", err)
	}
	for k, v := range attrs {
		p.metric.StatsEntry(param, k, v)
	}
	return nil
}
