// Package api exposes the thermostat and statistical parameter state
// over REST.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/metric"
	"github.com/homeclimate/thermoms/stats"
	"github.com/homeclimate/thermoms/svc"
	"github.com/homeclimate/thermoms/temp"
)

type (
	// ThermProvider is a contract for the thermostat state provider.
	ThermProvider interface {
		Therms() []svc.ThermState
		Therm(id string) (*svc.ThermState, error)
		SetDesired(id string, v temp.Temp) error
	}

	// StatsProvider is a contract for the statistical parameter
	// provider.
	StatsProvider interface {
		Stats() map[string]stats.Attrs
		Stat(name string) (stats.Attrs, error)
	}

	// Cfg is used to initialize an instance of api.
	Cfg struct {
		Log           log.Logger
		Ctrl          svc.Ctrl
		Metric        *metric.Metric
		PortREST      uint64
		ThermProvider ThermProvider
		StatsProvider StatsProvider
		PublicKey     string
	}

	api struct {
		log           log.Logger
		ctrl          svc.Ctrl
		metric        *metric.Metric
		portREST      uint64
		thermProvider ThermProvider
		statsProvider StatsProvider
		publicKey     string
		router        *mux.Router
		token         *token
	}
)

// New creates and initializes a new instance of api.
func New(c *Cfg) *api { // nolint
	return &api{
		log:           c.Log.With("component", "api"),
		ctrl:          c.Ctrl,
		metric:        c.Metric,
		portREST:      c.PortREST,
		thermProvider: c.ThermProvider,
		statsProvider: c.StatsProvider,
		publicKey:     c.PublicKey,
	}
}

// Run launches the service by running goroutines for listening to the
// service termination and queries from the web client.
func (a *api) Run() {
	a.log.With("event", log.EventComponentStarted).
		Infof("rest port [%d]", a.portREST)

	var err error
	if a.token, err = newToken(a.publicKey, a.log); err != nil {
		a.log.Errorf("func newToken: %s", err)
		a.terminate()
		return
	}

	go a.listenToTermination()

	a.router = mux.NewRouter()
	a.registerRoutes()
	a.serveHTTP()
}

func (a *api) listenToTermination() {
	<-a.ctrl.StopChan
	a.terminate()
}

func (a *api) terminate() {
	a.log.With("event", log.EventComponentShutdown).Info()
	_ = a.log.Flush()
	a.ctrl.Terminate()
}

func (a *api) registerRoutes() {
	middleware := []func(next http.HandlerFunc, name string) http.HandlerFunc{
		a.requestLogger,
		a.token.validator,
		a.metric.TimeTracker,
		a.spanTracker,
	}

	a.registerRoute(http.MethodGet, "/health", a.health)
	a.registerRoute(http.MethodGet, "/metrics", a.metric.RouterHandlerHTTP())

	a.registerRoute(http.MethodGet, "/v1/therm", a.getThermsHandler, middleware...)
	a.registerRoute(http.MethodGet, "/v1/therm/{id}", a.getThermHandler, middleware...)
	a.registerRoute(http.MethodPatch, "/v1/therm/{id}/desired", a.patchDesiredHandler, middleware...)

	a.registerRoute(http.MethodGet, "/v1/stats", a.getStatsHandler, middleware...)
	a.registerRoute(http.MethodGet, "/v1/stats/{name}", a.getStatHandler, middleware...)
}

func (a *api) serveHTTP() {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "HEAD", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	s := &http.Server{
		Handler: c.Handler(a.router),
		Addr:    fmt.Sprintf(":%d", a.portREST),
	}

	if err := s.ListenAndServe(); err != nil {
		a.log.Errorf("func ListenAndServe: %s", err)
		a.terminate()
	}
}
