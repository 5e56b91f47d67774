package svc

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/metric"
	"github.com/homeclimate/thermoms/temp"
)

// the prometheus collectors can only be registered once per process
var testMetric = metric.New("thermoms_test")

var testLog = log.New("thermoms_test", "error")

type opModeWrite struct {
	devID, mode, attr string
}

type targetTempWrite struct {
	devID, attr string
	value       float64
}

type fakeBus struct {
	mu          sync.Mutex
	opModes     []opModeWrite
	targetTemps []targetTempWrite
	reportChan  chan<- Report
}

func (b *fakeBus) WriteOpMode(devID, mode, attr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opModes = append(b.opModes, opModeWrite{devID, mode, attr})
	return nil
}

func (b *fakeBus) WriteTargetTemp(devID, attr string, value float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targetTemps = append(b.targetTemps, targetTempWrite{devID, attr, value})
	return nil
}

func (b *fakeBus) SubscribeReports(c chan<- Report) error {
	b.reportChan = c
	return nil
}

type fakeThermStore struct {
	mu     sync.Mutex
	saved  []ThermState
	states []ThermState
}

func (s *fakeThermStore) SaveThermState(st *ThermState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, *st)
	return nil
}

func (s *fakeThermStore) GetThermsStates() ([]ThermState, error) {
	return s.states, nil
}

type fakePub struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (p *fakePub) Publish(msg interface{}, channel string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, msg.([]byte))
	return 1, nil
}

func testTopology() *cfg.Topology {
	delta := &cfg.TempValue{Temp: temp.New(0.5)}
	return &cfg.Topology{
		Zones: []cfg.Zone{
			{
				Name: "living",
				Thermostats: []cfg.Device{
					{ID: "therm_1", Delta: delta},
					{ID: "therm_2"},
				},
			},
		},
	}
}

func newTestThermService(bus *fakeBus, store *fakeThermStore, pub *fakePub) *thermService {
	return NewThermService(&ThermServiceCfg{
		Log:      testLog,
		Ctrl:     Ctrl{StopChan: make(chan struct{})},
		Metric:   testMetric,
		Store:    store,
		Pub:      pub,
		Bus:      bus,
		Topology: testTopology(),
	})
}

func TestProcessReportSnapshots(t *testing.T) {
	bus := &fakeBus{}
	store := &fakeThermStore{}
	pub := &fakePub{}
	s := newTestThermService(bus, store, pub)

	s.processReport(Report{
		ThermID: "therm_1",
		Attrs: map[string]interface{}{
			"operation_mode":      "heat",
			"temperature":         21.0,
			"current_temperature": 20.2,
		},
	})

	require.Len(t, store.saved, 1)
	assert.Equal(t, ThermState{ID: "therm_1", Reported: "21", Current: "20.2"}, store.saved[0])

	require.Len(t, pub.channels, 1)
	assert.Equal(t, ThermStateChan, pub.channels[0])

	var st ThermState
	require.Nil(t, json.Unmarshal(pub.payloads[0], &st))
	assert.Equal(t, "21", st.Reported)
}

func TestProcessReportResyncsOnMismatch(t *testing.T) {
	bus := &fakeBus{}
	s := newTestThermService(bus, &fakeThermStore{}, &fakePub{})

	unit, ok := s.Unit("therm_1")
	require.True(t, ok)
	unit.SetDesired(temp.New(22))

	// the device reports 20 while the pipeline wants 22 + 0.5
	s.processReport(Report{
		ThermID: "therm_1",
		Attrs: map[string]interface{}{
			"operation_mode": "heat",
			"temperature":    20.0,
		},
	})

	require.Len(t, bus.targetTemps, 1)
	assert.Equal(t, targetTempWrite{"therm_1", "temperature", 22.5}, bus.targetTemps[0])
	require.Len(t, bus.opModes, 1)
	assert.Equal(t, opModeWrite{"therm_1", "heat", "operation_mode"}, bus.opModes[0])
}

func TestProcessReportNoResyncWhenInSync(t *testing.T) {
	bus := &fakeBus{}
	s := newTestThermService(bus, &fakeThermStore{}, &fakePub{})

	unit, _ := s.Unit("therm_1")
	unit.SetDesired(temp.New(22))

	s.processReport(Report{
		ThermID: "therm_1",
		Attrs: map[string]interface{}{
			"operation_mode": "heat",
			"temperature":    22.5,
		},
	})

	assert.Empty(t, bus.targetTemps)
	assert.Empty(t, bus.opModes)
}

func TestProcessReportUnknownTherm(t *testing.T) {
	store := &fakeThermStore{}
	s := newTestThermService(&fakeBus{}, store, &fakePub{})

	s.processReport(Report{ThermID: "nobody", Attrs: map[string]interface{}{}})

	assert.Empty(t, store.saved)
}

func TestProcessReportDiscardedNotSnapshotted(t *testing.T) {
	store := &fakeThermStore{}
	s := newTestThermService(&fakeBus{}, store, &fakePub{})

	s.processReport(Report{
		ThermID: "therm_1",
		Attrs:   map[string]interface{}{"operation_mode": "eco"},
	})

	assert.Empty(t, store.saved)
}

func TestProcessDesiredSendsAndSnapshots(t *testing.T) {
	bus := &fakeBus{}
	store := &fakeThermStore{}
	s := newTestThermService(bus, store, &fakePub{})

	s.processDesired(desiredUpdate{id: "therm_2", value: temp.New(19)})

	require.Len(t, bus.targetTemps, 1)
	assert.Equal(t, targetTempWrite{"therm_2", "temperature", 19}, bus.targetTemps[0])
	require.Len(t, store.saved, 1)
	assert.Equal(t, "19", store.saved[0].Desired)
}

func TestSetDesiredUnknownTherm(t *testing.T) {
	s := newTestThermService(&fakeBus{}, &fakeThermStore{}, &fakePub{})

	err := s.SetDesired("nobody", temp.New(21))
	assert.NotNil(t, err)
}

func TestRestoreDesired(t *testing.T) {
	store := &fakeThermStore{
		states: []ThermState{
			{ID: "therm_1", Desired: "21.5"},
			{ID: "therm_2", Desired: "not a temp"},
			{ID: "gone", Desired: "18"},
		},
	}
	s := newTestThermService(&fakeBus{}, store, &fakePub{})

	s.restoreDesired()

	unit, _ := s.Unit("therm_1")
	v, ok := unit.Desired()
	require.True(t, ok)
	assert.True(t, v.Equal(temp.New(21.5)))

	unit, _ = s.Unit("therm_2")
	_, ok = unit.Desired()
	assert.False(t, ok)
}

func TestTherms(t *testing.T) {
	s := newTestThermService(&fakeBus{}, &fakeThermStore{}, &fakePub{})

	states := s.Therms()
	require.Len(t, states, 2)
	assert.Equal(t, "therm_1", states[0].ID)
	assert.Equal(t, "therm_2", states[1].ID)

	st, err := s.Therm("therm_1")
	require.Nil(t, err)
	assert.Equal(t, "therm_1", st.ID)

	_, err = s.Therm("nobody")
	assert.NotNil(t, err)
}
