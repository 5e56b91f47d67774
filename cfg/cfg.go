// Package cfg provides the service configuration: environment-driven
// settings for the infrastructure plus the YAML zone topology.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Addr is used to store an IP address and an open port of a remote
// server.
type Addr struct {
	Host string
	Port uint64
}

// Config holds the whole service configuration.
type Config struct {
	Service    Service
	Store      Store
	NATS       NATS
	MQTT       MQTT
	Token      Token
	TraceAgent TraceAgent
}

// NewConfig reads the configuration from environment variables and
// validates it.
func NewConfig() (*Config, error) {
	c := &Config{
		Service: Service{
			AppID:              os.Getenv("APP_ID"),
			LogLevel:           os.Getenv("LOG_LEVEL"),
			Transport:          os.Getenv("TRANSPORT"),
			ZonesFile:          os.Getenv("ZONES_FILE"),
			RetryTimeout:       durEnv("RETRY_TIMEOUT"),
			RetryAttempts:      uint32(uintEnv("RETRY_ATTEMPTS")),
			PortREST:           uint32(uintEnv("PORT_REST")),
			PortWebSocket:      uint32(uintEnv("PORT_WEBSOCKET")),
			StatsDelay:         durEnv("STATS_DELAY"),
			TerminationTimeout: durEnv("TERMINATION_TIMEOUT"),
		},
		Store: Store{
			Addr:     Addr{Host: os.Getenv("STORE_HOST"), Port: uintEnv("STORE_PORT")},
			Password: os.Getenv("STORE_PASSWORD"),
		},
		NATS: NATS{
			Addr: Addr{Host: os.Getenv("NATS_HOST"), Port: uintEnv("NATS_PORT")},
		},
		MQTT: MQTT{
			Addr: Addr{Host: os.Getenv("MQTT_HOST"), Port: uintEnv("MQTT_PORT")},
		},
		Token: Token{
			PublicKey: os.Getenv("TOKEN_PUBLIC_KEY"),
		},
		TraceAgent: TraceAgent{
			Addr: Addr{Host: os.Getenv("TRACE_AGENT_HOST"), Port: uintEnv("TRACE_AGENT_PORT")},
		},
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if err := c.Service.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	switch c.Service.Transport {
	case TransportNATS:
		if err := c.NATS.validate(); err != nil {
			return err
		}
	case TransportMQTT:
		if err := c.MQTT.validate(); err != nil {
			return err
		}
	}
	return nil
}

func uintEnv(name string) uint64 {
	v, err := strconv.ParseUint(os.Getenv(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func durEnv(name string) time.Duration {
	v, err := time.ParseDuration(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}

func (a Addr) validate(what string) error {
	if a.Host == "" {
		return fmt.Errorf("%s host env var is missing", what)
	}
	if a.Port == 0 {
		return fmt.Errorf("%s port env var is missing", what)
	}
	return nil
}
