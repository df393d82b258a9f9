package http

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/httpd/http"

type Middleware func(next Handler) Handler

// chain wraps handler so the first middleware in the list runs first.
func chain(handler Handler, middleware []Middleware) Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// RecoverMiddleware turns a handler panic into a 500 response without a body.
func RecoverMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx *RequestCtx) {
			defer func() {
				if recovered := recover(); recovered != nil {
					ctx.Log().Error("handler panicked",
						"panic", recovered,
						"method", ctx.Request.Method,
						"path", ctx.Request.Path,
					)

					ctx.Response.Reset()
					ctx.Response.WithStatus(StatusInternalServerError)
				}
			}()

			next(ctx)
		}
	}
}

// headerCarrier exposes request headers to a propagator. Lookups fall back to
// a case-insensitive match since propagators use lowercase keys.
type headerCarrier map[string]string

func (c headerCarrier) Get(key string) string {
	if value, found := c[key]; found {
		return value
	}
	for name, value := range c {
		if strings.EqualFold(name, key) {
			return value
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for name := range c {
		keys = append(keys, name)
	}
	return keys
}

var _ propagation.TextMapCarrier = headerCarrier(nil)

// TracingMiddleware starts a server span per request, continuing a trace
// propagated in the request headers when there is one.
func TracingMiddleware(provider trace.TracerProvider) Middleware {
	tracer := provider.Tracer(instrumentationName)

	return func(next Handler) Handler {
		return func(ctx *RequestCtx) {
			name := ctx.Request.Method
			if ctx.Route() != "" {
				name += " " + ctx.Route()
			}

			parentCtx := otel.GetTextMapPropagator().Extract(ctx.Context(), headerCarrier(ctx.Request.Headers))

			spanCtx, span := tracer.Start(parentCtx, name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(ctx.Request.Method),
					semconv.URLPath(ctx.Request.Path),
					semconv.HTTPRoute(ctx.Route()),
					attribute.String("http.connection.id", ctx.ConnID),
				),
			)
			defer span.End()

			previous := ctx.Context()
			ctx.SetContext(spanCtx)
			defer ctx.SetContext(previous)

			next(ctx)

			status := ctx.Response.Status
			span.SetAttributes(semconv.HTTPResponseStatusCode(int(status)))
			if status >= 500 {
				span.SetStatus(codes.Error, StatusText(status))
			}
		}
	}
}

// MetricsMiddleware counts requests and records their duration by method, route and status.
func MetricsMiddleware(provider metric.MeterProvider) (Middleware, error) {
	meter := provider.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time spent in the handler"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return func(next Handler) Handler {
		return func(ctx *RequestCtx) {
			start := time.Now()

			next(ctx)

			attrs := metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(ctx.Request.Method),
				semconv.HTTPRoute(ctx.Route()),
				semconv.HTTPResponseStatusCode(int(ctx.Response.Status)),
			)
			requests.Add(ctx.Context(), 1, attrs)
			duration.Record(ctx.Context(), time.Since(start).Seconds(), attrs)
		}
	}, nil
}
