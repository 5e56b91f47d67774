package main

import (
	stdlog "log"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/homeclimate/thermoms/api"
	mqttbus "github.com/homeclimate/thermoms/bus/mqtt"
	natsbus "github.com/homeclimate/thermoms/bus/nats"
	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/metric"
	"github.com/homeclimate/thermoms/store"
	"github.com/homeclimate/thermoms/svc"
	"github.com/homeclimate/thermoms/trace"
)

const (
	defaultMaxIdlePoolConns = 10
	defaultIdleTimeout      = 240 * time.Second
	defaultMeshTTL          = 4 * time.Second
)

var envFile = flag.String("env-file", ".env", "path to the environment file")

// climateBus is the transport-independent view of the climate bus.
type climateBus interface {
	svc.ThermBus
	svc.StatsSink
	Close()
}

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		stdlog.Printf("func Load: %s", err)
	}

	conf, err := cfg.NewConfig()
	if err != nil {
		stdlog.Fatalf("func NewConfig: %s", err)
	}

	logger := log.New(conf.Service.AppID, conf.Service.LogLevel)
	defer logger.Flush() // nolint

	topology, err := cfg.LoadTopology(conf.Service.ZonesFile)
	if err != nil {
		logger.Fatalf("func LoadTopology: %s", err)
	}

	if err := conf.TraceAgent.Validate(); err != nil {
		logger.Warnf("tracing disabled: %s", err)
	} else if err := trace.Init(conf.Service.AppID, conf.TraceAgent); err != nil {
		logger.Errorf("func trace.Init: %s", err)
	}

	mtr := metric.New(conf.Service.AppID)

	redis, err := store.New(&store.Cfg{
		Addr:             conf.Store.Addr,
		Password:         conf.Store.Password,
		MaxIdlePoolConns: defaultMaxIdlePoolConns,
		IdleTimeout:      defaultIdleTimeout,
		RetryTimeout:     conf.Service.RetryTimeout,
		RetryAttempts:    conf.Service.RetryAttempts,
		Log:              logger,
	})
	if err != nil {
		logger.With("event", log.EventStoreInit).Fatalf("func store.New: %s", err)
	}
	defer redis.CloseConn() // nolint

	var bus climateBus
	switch conf.Service.Transport {
	case cfg.TransportMQTT:
		bus, err = mqttbus.New(&mqttbus.Cfg{
			Addr:          conf.MQTT.Addr,
			ClientID:      conf.Service.AppID,
			Log:           logger,
			RetryTimeout:  conf.Service.RetryTimeout,
			RetryAttempts: conf.Service.RetryAttempts,
		})
	default:
		bus, err = natsbus.New(&natsbus.Cfg{
			Addr:          conf.NATS.Addr,
			Log:           logger,
			RetryTimeout:  conf.Service.RetryTimeout,
			RetryAttempts: conf.Service.RetryAttempts,
		})
	}
	if err != nil {
		logger.Fatalf("func bus.New: %s", err)
	}
	defer bus.Close()

	ctrl := svc.Ctrl{StopChan: make(chan struct{})}

	thermSvc := svc.NewThermService(&svc.ThermServiceCfg{
		Log:      logger,
		Ctrl:     ctrl,
		Metric:   mtr,
		Store:    redis,
		Pub:      redis,
		Bus:      bus,
		Topology: topology,
	})
	go thermSvc.Run()

	statsSvc := svc.NewStatsService(&svc.StatsServiceCfg{
		Log:      logger,
		Ctrl:     ctrl,
		Metric:   mtr,
		Store:    redis,
		Sink:     bus,
		Units:    thermSvc,
		Topology: topology,
		Delay:    conf.Service.StatsDelay,
	})
	go statsSvc.Run()

	streamSvc := svc.NewStreamService(&svc.StreamServiceCfg{
		Log:        logger,
		Ctrl:       ctrl,
		Subscriber: redis,
		SubChan:    svc.ThermStateChan,
		PortWS:     uint64(conf.Service.PortWebSocket),
	})
	go streamSvc.Run()

	mesh := svc.NewMeshAgent(&svc.MeshAgentCfg{
		Name: conf.Service.AppID,
		Port: int(conf.Service.PortREST),
		TTL:  defaultMeshTTL,
		Log:  logger,
	})
	go mesh.Run()

	apiSvc := api.New(&api.Cfg{
		Log:           logger,
		Ctrl:          ctrl,
		Metric:        mtr,
		PortREST:      uint64(conf.Service.PortREST),
		ThermProvider: thermSvc,
		StatsProvider: statsSvc,
		PublicKey:     conf.Token.PublicKey,
	})
	go apiSvc.Run()

	ctrl.Wait(conf.Service.TerminationTimeout)

	logger.With("event", log.EventMSShutdown).Infof("%s is down", conf.Service.AppID)
}
