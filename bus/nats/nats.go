// Package nats connects the service to the climate bus over NATS.
package nats

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/nats-io/go-nats"
	"github.com/pkg/errors"
	"github.com/satori/go.uuid"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/svc"
)

// Bus subjects. Commands and state reports carry the thermostat id
// as the last token, stats publications the parameter name.
const (
	subjCmdOpMode    = "therm.cmd.opmode"
	subjCmdTemp      = "therm.cmd.temp"
	subjState        = "therm.state"
	subjStats        = "stats"
	subjStateWildcrd = subjState + ".>"
)

const aggregateType = "therm_svc"

// Event types used on the bus.
const (
	eventOpModeSet      = "opmode_set"
	eventTargetTempSet  = "target_temp_set"
	eventStateReported  = "state_reported"
	eventStatsPublished = "stats_published"
)

type (
	// Cfg is used to initialize an instance of bus.
	Cfg struct {
		Addr          cfg.Addr
		Log           log.Logger
		RetryTimeout  time.Duration
		RetryAttempts uint32
	}

	// bus publishes thermostat commands and statistical parameters
	// and consumes thermostat state reports.
	bus struct {
		conn *nats.Conn
		log  log.Logger
	}

	event struct {
		AggregateID   string          `json:"aggregate_id"`
		AggregateType string          `json:"aggregate_type"`
		EventID       string          `json:"event_id"`
		EventType     string          `json:"event_type"`
		EventData     json.RawMessage `json:"event_data"`
	}

	cmdData struct {
		Attr  string      `json:"attr"`
		Value interface{} `json:"value"`
	}
)

// New creates a new instance of bus and connects it to the broker,
// retrying on failure.
func New(c *Cfg) (*bus, error) { // nolint
	var (
		conn         *nats.Conn
		err          error
		retryAttempt uint32
	)

	url := fmt.Sprintf("nats://%s:%d", c.Addr.Host, c.Addr.Port)
	for {
		conn, err = nats.Connect(url)
		if err != nil && retryAttempt < c.RetryAttempts {
			c.Log.Error("func Connect: nats connectivity status is DISCONNECTED")
			retryAttempt++
			duration := time.Duration(rand.Intn(int(c.RetryTimeout.Seconds())))
			time.Sleep(time.Second*duration + 1)
			continue
		}
		break
	}
	if err != nil {
		return nil, errors.Wrap(err, "nats: func Connect")
	}

	return &bus{
		conn: conn,
		log:  c.Log.With("component", "bus"),
	}, nil
}

// Close drains the connection.
func (b *bus) Close() {
	b.conn.Close()
}

// WriteOpMode publishes an operation mode command for the given
// thermostat.
func (b *bus) WriteOpMode(devID, mode, attr string) error {
	return b.publishCmd(subjCmdOpMode, eventOpModeSet, devID, cmdData{Attr: attr, Value: mode})
}

// WriteTargetTemp publishes a target temperature command for the
// given thermostat.
func (b *bus) WriteTargetTemp(devID, attr string, value float64) error {
	return b.publishCmd(subjCmdTemp, eventTargetTempSet, devID, cmdData{Attr: attr, Value: value})
}

func (b *bus) publishCmd(subj, eventType, devID string, d cmdData) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "nats: func Marshal")
	}
	return b.publish(subj+"."+devID, eventType, devID, data)
}

// PublishStats publishes the entries of a statistical parameter.
func (b *bus) PublishStats(name string, attrs map[string]float64) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return errors.Wrap(err, "nats: func Marshal")
	}
	return b.publish(subjStats+"."+name, eventStatsPublished, name, data)
}

func (b *bus) publish(subj, eventType, aggregateID string, data json.RawMessage) error {
	e := event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventID:       uuid.NewV4().String(),
		EventType:     eventType,
		EventData:     data,
	}

	msg, err := json.Marshal(&e)
	if err != nil {
		return errors.Wrap(err, "nats: func Marshal")
	}
	if err := b.conn.Publish(subj, msg); err != nil {
		return errors.Wrap(err, "nats: func Publish")
	}
	return nil
}

// SubscribeReports subscribes to thermostat state reports and
// forwards the decoded reports to c. Undecodable messages are
// logged and dropped.
func (b *bus) SubscribeReports(c chan<- svc.Report) error {
	_, err := b.conn.Subscribe(subjStateWildcrd, func(m *nats.Msg) {
		var e event
		if err := json.Unmarshal(m.Data, &e); err != nil {
			b.log.Errorf("func Unmarshal: subj %s: %s", m.Subject, err)
			return
		}
		if e.EventType != eventStateReported {
			return
		}

		var attrs map[string]interface{}
		if err := json.Unmarshal(e.EventData, &attrs); err != nil {
			b.log.Errorf("func Unmarshal: subj %s: %s", m.Subject, err)
			return
		}

		c <- svc.Report{ThermID: e.AggregateID, Attrs: attrs}
	})
	if err != nil {
		return errors.Wrap(err, "nats: func Subscribe")
	}
	return nil
}
