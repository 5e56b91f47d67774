// Package mqtt connects the service to the climate bus over MQTT.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/satori/go.uuid"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/svc"
)

// Bus topics. Commands and state reports carry the thermostat id
// as the last segment, stats publications the parameter name.
const (
	topicCmdOpMode    = "therm/cmd/opmode"
	topicCmdTemp      = "therm/cmd/temp"
	topicState        = "therm/state"
	topicStats        = "stats"
	topicStateWildcrd = topicState + "/#"
)

const aggregateType = "therm_svc"

// Event types used on the bus.
const (
	eventOpModeSet      = "opmode_set"
	eventTargetTempSet  = "target_temp_set"
	eventStateReported  = "state_reported"
	eventStatsPublished = "stats_published"
)

const qosAtLeastOnce = 1

type (
	// Cfg is used to initialize an instance of bus.
	Cfg struct {
		Addr          cfg.Addr
		ClientID      string
		Log           log.Logger
		RetryTimeout  time.Duration
		RetryAttempts uint32
	}

	// bus publishes thermostat commands and statistical parameters
	// and consumes thermostat state reports.
	bus struct {
		client paho.Client
		log    log.Logger
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
	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", c.Addr.Host, c.Addr.Port)).
		SetClientID(c.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(c.RetryTimeout)

	client := paho.NewClient(opts)

	var (
		err          error
		retryAttempt uint32
	)
	for {
		token := client.Connect()
		token.Wait()
		err = token.Error()
		if err != nil && retryAttempt < c.RetryAttempts {
			c.Log.Error("func Connect: mqtt connectivity status is DISCONNECTED")
			retryAttempt++
			time.Sleep(c.RetryTimeout)
			continue
		}
		break
	}
	if err != nil {
		return nil, errors.Wrap(err, "mqtt: func Connect")
	}

	return &bus{
		client: client,
		log:    c.Log.With("component", "bus"),
	}, nil
}

// Close disconnects from the broker.
func (b *bus) Close() {
	b.client.Disconnect(250)
}

// WriteOpMode publishes an operation mode command for the given
// thermostat.
func (b *bus) WriteOpMode(devID, mode, attr string) error {
	return b.publishCmd(topicCmdOpMode, eventOpModeSet, devID, cmdData{Attr: attr, Value: mode})
}

// WriteTargetTemp publishes a target temperature command for the
// given thermostat.
func (b *bus) WriteTargetTemp(devID, attr string, value float64) error {
	return b.publishCmd(topicCmdTemp, eventTargetTempSet, devID, cmdData{Attr: attr, Value: value})
}

func (b *bus) publishCmd(topic, eventType, devID string, d cmdData) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "mqtt: func Marshal")
	}
	return b.publish(topic+"/"+devID, eventType, devID, data)
}

// PublishStats publishes the entries of a statistical parameter.
func (b *bus) PublishStats(name string, attrs map[string]float64) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return errors.Wrap(err, "mqtt: func Marshal")
	}
	return b.publish(topicStats+"/"+name, eventStatsPublished, name, data)
}

func (b *bus) publish(topic, eventType, aggregateID string, data json.RawMessage) error {
	e := event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventID:       uuid.NewV4().String(),
		EventType:     eventType,
		EventData:     data,
	}

	msg, err := json.Marshal(&e)
	if err != nil {
		return errors.Wrap(err, "mqtt: func Marshal")
	}

	token := b.client.Publish(topic, qosAtLeastOnce, false, msg)
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "mqtt: func Publish")
	}
	return nil
}

// SubscribeReports subscribes to thermostat state reports and
// forwards the decoded reports to c. Undecodable messages are
// logged and dropped.
func (b *bus) SubscribeReports(c chan<- svc.Report) error {
	token := b.client.Subscribe(topicStateWildcrd, qosAtLeastOnce, func(_ paho.Client, m paho.Message) {
		var e event
		if err := json.Unmarshal(m.Payload(), &e); err != nil {
			b.log.Errorf("func Unmarshal: topic %s: %s", m.Topic(), err)
			return
		}
		if e.EventType != eventStateReported {
			return
		}

		var attrs map[string]interface{}
		if err := json.Unmarshal(e.EventData, &attrs); err != nil {
			b.log.Errorf("func Unmarshal: topic %s: %s", m.Topic(), err)
			return
		}

		c <- svc.Report{ThermID: e.AggregateID, Attrs: attrs}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "mqtt: func Subscribe")
	}
	return nil
}
