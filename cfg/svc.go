package cfg

import (
	"fmt"
	"time"
)

// Supported device transports.
const (
	TransportNATS = "nats"
	TransportMQTT = "mqtt"
)

// Service holds basic service configuration.
type Service struct {
	AppID              string
	LogLevel           string
	Transport          string
	ZonesFile          string
	RetryTimeout       time.Duration
	RetryAttempts      uint32
	PortREST           uint32
	PortWebSocket      uint32
	StatsDelay         time.Duration
	TerminationTimeout time.Duration
}

func (s Service) validate() error {
	if s.AppID == "" {
		return fmt.Errorf("app id env var is missing")
	}
	if s.LogLevel == "" {
		return fmt.Errorf("log level env var is missing")
	}
	if s.Transport != TransportNATS && s.Transport != TransportMQTT {
		return fmt.Errorf("transport env var must be %q or %q", TransportNATS, TransportMQTT)
	}
	if s.ZonesFile == "" {
		return fmt.Errorf("zones file env var is missing")
	}
	if s.RetryTimeout == 0 {
		return fmt.Errorf("retry timeout env var is missing")
	}
	if s.RetryAttempts == 0 {
		return fmt.Errorf("retry attempts env var is missing")
	}
	if s.PortREST == 0 {
		return fmt.Errorf("rest port env var is missing")
	}
	if s.PortWebSocket == 0 {
		return fmt.Errorf("websocket port env var is missing")
	}
	if s.TerminationTimeout == 0 {
		return fmt.Errorf("termination timeout env var is missing")
	}
	return nil
}
