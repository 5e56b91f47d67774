package svc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/stats"
)

const (
	statsTestDelay = 20 * time.Millisecond
	statsWaitCycle = 4 * statsTestDelay
)

type fakeStatsSink struct {
	mu        sync.Mutex
	published []map[string]float64
	names     []string
}

func (s *fakeStatsSink) PublishStats(name string, attrs map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.published = append(s.published, attrs)
	return nil
}

func (s *fakeStatsSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func (s *fakeStatsSink) last() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.published) == 0 {
		return nil
	}
	return s.published[len(s.published)-1]
}

type fakeStatsStore struct {
	mu        sync.Mutex
	baselines map[string]map[string]float64
}

func (s *fakeStatsStore) SaveStatsBaseline(name string, attrs map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baselines == nil {
		s.baselines = make(map[string]map[string]float64)
	}
	s.baselines[name] = attrs
	return nil
}

func (s *fakeStatsStore) GetStatsBaseline(name string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baselines[name], nil
}

func statsTestTopology() *cfg.Topology {
	t := testTopology()
	t.Stats = []cfg.StatsParam{
		{Name: "delta", Type: cfg.StatsTempDelta},
		{Name: "room_temp", Type: cfg.StatsCurrentTemp},
	}
	return t
}

func newTestStatsService(therms *thermService, sink *fakeStatsSink, store *fakeStatsStore) *statsService {
	return NewStatsService(&StatsServiceCfg{
		Log:      testLog,
		Ctrl:     Ctrl{StopChan: make(chan struct{})},
		Metric:   testMetric,
		Store:    store,
		Sink:     sink,
		Units:    therms,
		Topology: statsTestTopology(),
		Delay:    statsTestDelay,
	})
}

func TestStatsInitialPublication(t *testing.T) {
	therms := newTestThermService(&fakeBus{}, &fakeThermStore{}, &fakePub{})
	sink := &fakeStatsSink{}
	store := &fakeStatsStore{}
	s := newTestStatsService(therms, sink, store)

	s.Run()
	time.Sleep(statsWaitCycle)

	// no device is initialized, both parameters publish all zeros
	require.Equal(t, 2, sink.count())
	assert.Equal(t, map[string]float64{"min": 0.0, "avg": 0.0, "max": 0.0}, sink.last())
	assert.Equal(t, map[string]float64{"min": 0.0, "avg": 0.0, "max": 0.0}, store.baselines["delta"])
}

func TestStatsRefreshOnReport(t *testing.T) {
	therms := newTestThermService(&fakeBus{}, &fakeThermStore{}, &fakePub{})
	sink := &fakeStatsSink{}
	s := newTestStatsService(therms, sink, &fakeStatsStore{})

	s.Run()
	time.Sleep(statsWaitCycle)
	initial := sink.count()

	therms.processReport(Report{
		ThermID: "therm_1",
		Attrs: map[string]interface{}{
			"operation_mode":      "heat",
			"temperature":         20.0,
			"current_temperature": 21.5,
		},
	})
	time.Sleep(statsWaitCycle)

	assert.True(t, sink.count() > initial)

	attrs, err := s.Stat("delta")
	require.Nil(t, err)
	assert.Equal(t, stats.Attrs{"min": 1.5, "avg": 1.5, "max": 1.5}, attrs)

	attrs, err = s.Stat("room_temp")
	require.Nil(t, err)
	assert.Equal(t, stats.Attrs{"min": 21.5, "avg": 21.5, "max": 21.5}, attrs)
}

func TestStatsBaselineSuppressesInitialPublication(t *testing.T) {
	therms := newTestThermService(&fakeBus{}, &fakeThermStore{}, &fakePub{})
	sink := &fakeStatsSink{}
	store := &fakeStatsStore{
		baselines: map[string]map[string]float64{
			"delta":     {"min": 0.0, "avg": 0.0, "max": 0.0},
			"room_temp": {"min": 0.0, "avg": 0.0, "max": 0.0},
		},
	}
	s := newTestStatsService(therms, sink, store)

	s.Run()
	time.Sleep(statsWaitCycle)

	// the computed state matches the restored baselines
	assert.Equal(t, 0, sink.count())
}

func TestStatsUnknownParam(t *testing.T) {
	therms := newTestThermService(&fakeBus{}, &fakeThermStore{}, &fakePub{})
	s := newTestStatsService(therms, &fakeStatsSink{}, &fakeStatsStore{})

	_, err := s.Stat("nobody")
	assert.NotNil(t, err)

	all := s.Stats()
	assert.Len(t, all, 2)
}
