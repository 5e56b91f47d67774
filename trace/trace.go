// Package trace initializes distributed tracing and provides span
// helpers.
package trace

import (
	"context"
	"fmt"
	"net/http"

	"contrib.go.opencensus.io/exporter/jaeger"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/plugin/ochttp/propagation/b3"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"github.com/homeclimate/thermoms/cfg"
)

// Init initializes jaeger trace agent.
func Init(serviceName string, a cfg.TraceAgent) error {
	exp, err := jaeger.NewExporter(jaeger.Options{
		AgentEndpoint: fmt.Sprintf("%s:%d", a.Addr.Host, a.Addr.Port),
		Process: jaeger.Process{
			ServiceName: serviceName,
		},
	})
	if err != nil {
		return fmt.Errorf("func NewExporter: %s", err)
	}
	if err := view.Register(ochttp.DefaultServerViews...); err != nil {
		return fmt.Errorf("func Register: %s", err)
	}

	trace.RegisterExporter(exp)
	trace.ApplyConfig(trace.Config{
		DefaultSampler: trace.AlwaysSample(),
	})

	return nil
}

// SpanFromReqAPI creates span from request with b3 propagation.
func SpanFromReqAPI(r *http.Request, name string) (context.Context, *trace.Span) {
	name = fmt.Sprintf("api: %s", name)
	f := b3.HTTPFormat{}
	ctx, _ := f.SpanContextFromRequest(r)

	return trace.StartSpanWithRemoteParent(r.Context(), name, ctx)
}

// ClientSpanFromReqHTTP creates span with request b3 propagation.
func ClientSpanFromReqHTTP(ctx context.Context, r *http.Request, name string) (context.Context, *trace.Span) {
	ctx, span := trace.StartSpan(ctx, fmt.Sprintf("http_client: %s", name))
	span.AddAttributes(
		trace.StringAttribute("url", r.URL.String()),
		trace.StringAttribute("method", r.Method))

	f := b3.HTTPFormat{}
	f.SpanContextToRequest(span.SpanContext(), r)

	return ctx, span
}
