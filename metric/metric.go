package metric

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric aggregates the service's prometheus collectors.
type Metric struct {
	serviceTiming *prometheus.SummaryVec
	errorCounter  *prometheus.CounterVec
	reportCounter *prometheus.CounterVec
	cmdCounter    *prometheus.CounterVec
	statsEntry    *prometheus.GaugeVec
}

func New(appID string) *Metric {
	r := strings.NewReplacer(
		"-", "_",
		" ", "_")
	serviceName := r.Replace(appID)

	m := &Metric{
		serviceTiming: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "service_timing",
				Help: fmt.Sprintf("%s timing", serviceName),
			},
			[]string{fmt.Sprintf("%s_service", serviceName)},
		),
		errorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "error_counter",
				Help: fmt.Sprintf("%s error counter", serviceName),
			},
			[]string{fmt.Sprintf("%s_error", serviceName)},
		),
		reportCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "therm_report_counter",
				Help: "thermostat state reports consumed",
			},
			[]string{"therm_id"},
		),
		cmdCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "therm_cmd_counter",
				Help: "thermostat commands written",
			},
			[]string{"therm_id"},
		),
		statsEntry: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stats_entry",
				Help: "last published statistical parameter entries",
			},
			[]string{"param", "entry"},
		),
	}

	prometheus.MustRegister(m.serviceTiming)
	prometheus.MustRegister(m.errorCounter)
	prometheus.MustRegister(m.reportCounter)
	prometheus.MustRegister(m.cmdCounter)
	prometheus.MustRegister(m.statsEntry)

	return m
}

func (m *Metric) ErrorCounter(label string) {
	m.errorCounter.
		WithLabelValues(label).
		Inc()
}

func (m *Metric) ReportConsumed(thermID string) {
	m.reportCounter.
		WithLabelValues(thermID).
		Inc()
}

func (m *Metric) CommandWritten(thermID string) {
	m.cmdCounter.
		WithLabelValues(thermID).
		Inc()
}

// StatsEntry mirrors one entry of a published statistical parameter
// so it can be scraped alongside the bus publication.
func (m *Metric) StatsEntry(param, entry string, value float64) {
	m.statsEntry.
		WithLabelValues(param, entry).
		Set(value)
}

func (m *Metric) Timing(start time.Time, label string) {
	m.serviceTiming.
		WithLabelValues(label).
		Observe(time.Since(start).Seconds())
}

func (m *Metric) TimeTracker(next http.HandlerFunc, label string) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		start := time.Now()
		next(response, request)
		m.Timing(start, label)
	}
}

func (m *Metric) RouterHandlerHTTP() http.HandlerFunc {
	return m.stdToHTTPRouterMiddleware(m.handlerHTTP())
}

func (m *Metric) handlerHTTP() http.Handler {
	return promhttp.Handler()
}

func (m *Metric) stdToHTTPRouterMiddleware(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
	}
}
