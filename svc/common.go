// Package svc wires the thermostat units, the statistical parameters
// and the stream of state snapshots into long-running services.
package svc

// ThermStateChan is the internal pub/sub channel the thermostat
// snapshots fan out on.
const ThermStateChan = "therm_state"

type (
	// Report is a decoded device state report received from the bus.
	Report struct {
		ThermID string
		Attrs   map[string]interface{}
	}

	// ThermState is a snapshot of one thermostat's known temperatures.
	// Unknown values are empty strings, OFF is the literal "OFF".
	ThermState struct {
		ID       string `json:"id"`
		Desired  string `json:"desired,omitempty"`
		Reported string `json:"reported,omitempty"`
		Current  string `json:"current,omitempty"`
	}

	// subscription is used to store channel name and chan for subscribing.
	subscription struct {
		ChanName string
		Chan     chan []byte
	}
)
