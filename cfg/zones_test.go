package cfg

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeclimate/thermoms/temp"
)

const zonesYAML = `
zones:
  - name: living
    thermostats:
      - id: therm_living_1
        delta: 0.5
        min_temp: 16
        max_temp: 25
      - id: therm_living_2
        supports_opmodes: false
        off_temp: 5
  - name: bath
    thermostats:
      - id: therm_bath
        off_temp: OFF
        opmode_on: auto
        current_temp_state_attr: ""
stats:
  - name: temp_delta
    type: temp_delta
    delay: 5s
    off_value: 0
    zones: [living]
    weights:
      therm_living_1: 2
    factors:
      therm_living_2: 0.5
  - name: room_temp
    type: current_temp
`

func writeZones(t *testing.T, contents string) string {
	f, err := ioutil.TempFile("", "zones*.yml")
	require.Nil(t, err)
	_, err = f.WriteString(contents)
	require.Nil(t, err)
	require.Nil(t, f.Close())
	return f.Name()
}

func TestLoadTopology(t *testing.T) {
	path := writeZones(t, zonesYAML)
	defer os.Remove(path)

	top, err := LoadTopology(path)
	require.Nil(t, err)
	require.Len(t, top.Zones, 2)
	require.Len(t, top.Stats, 2)

	living := top.Zones[0]
	assert.Equal(t, "living", living.Name)
	require.Len(t, living.Thermostats, 2)

	c := living.Thermostats[0].ThermConfig()
	assert.Equal(t, "therm_living_1", c.ID)
	assert.True(t, c.Delta.Equal(temp.New(0.5)))
	require.NotNil(t, c.MinTemp)
	assert.True(t, c.MinTemp.Equal(temp.New(16)))
	require.NotNil(t, c.MaxTemp)
	assert.True(t, c.MaxTemp.Equal(temp.New(25)))
	assert.True(t, c.OffTemp.IsOff())
	assert.True(t, c.SupportsOpModes)
	assert.Equal(t, "heat", c.OpModeOn)
	assert.Equal(t, "off", c.OpModeOff)
	assert.Equal(t, "operation_mode", c.OpModeStateAttr)
	assert.Equal(t, "temperature", c.TargetTempStateAttr)
	assert.Equal(t, "current_temperature", c.CurrentTempStateAttr)

	c = living.Thermostats[1].ThermConfig()
	assert.False(t, c.SupportsOpModes)
	assert.True(t, c.OffTemp.Equal(temp.New(5)))

	c = top.Zones[1].Thermostats[0].ThermConfig()
	assert.True(t, c.OffTemp.IsOff())
	assert.Equal(t, "auto", c.OpModeOn)
	// explicit empty attribute disables current-temperature decoding
	assert.Equal(t, "", c.CurrentTempStateAttr)

	td := top.Stats[0]
	assert.Equal(t, StatsTempDelta, td.Type)
	assert.Equal(t, 5*time.Second, td.Delay.Duration)
	require.NotNil(t, td.OffValue)
	assert.Equal(t, 0.0, *td.OffValue)
	assert.Equal(t, 2.0, td.Weights["therm_living_1"])
	assert.Equal(t, []string{"living"}, td.Zones)

	rt := top.Stats[1]
	assert.Equal(t, StatsCurrentTemp, rt.Type)
	assert.Nil(t, rt.OffValue)
}

func TestObservedZones(t *testing.T) {
	path := writeZones(t, zonesYAML)
	defer os.Remove(path)

	top, err := LoadTopology(path)
	require.Nil(t, err)

	zones := top.ObservedZones(top.Stats[0])
	require.Len(t, zones, 1)
	assert.Equal(t, "living", zones[0].Name)

	// a parameter naming no zones observes all of them
	zones = top.ObservedZones(top.Stats[1])
	assert.Len(t, zones, 2)
}

func TestLoadTopologyInvalid(t *testing.T) {
	cases := []string{
		// no zones
		`stats: []`,
		// duplicate thermostat
		`
zones:
  - name: a
    thermostats: [{id: x}, {id: x}]`,
		// OFF delta
		`
zones:
  - name: a
    thermostats: [{id: x, delta: OFF}]`,
		// unknown stats type
		`
zones:
  - name: a
    thermostats: [{id: x}]
stats:
  - name: p
    type: humidity`,
		// unknown zone reference
		`
zones:
  - name: a
    thermostats: [{id: x}]
stats:
  - name: p
    type: temp_delta
    zones: [b]`,
		// negative weight
		`
zones:
  - name: a
    thermostats: [{id: x}]
stats:
  - name: p
    type: temp_delta
    weights: {x: -1}`,
		// non-positive factor
		`
zones:
  - name: a
    thermostats: [{id: x}]
stats:
  - name: p
    type: temp_delta
    factors: {x: 0}`,
		// unparsable temperature
		`
zones:
  - name: a
    thermostats: [{id: x, off_temp: warm}]`,
	}

	for _, c := range cases {
		path := writeZones(t, c)
		_, err := LoadTopology(path)
		assert.NotNil(t, err, c)
		os.Remove(path)
	}
}

func TestLoadTopologyMissingFile(t *testing.T) {
	_, err := LoadTopology("/nonexistent/zones.yml")
	assert.NotNil(t, err)
}
