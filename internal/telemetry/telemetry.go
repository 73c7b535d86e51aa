// Package telemetry sets up tracing. Spans are only exported when
// OTEL_EXPORTER_OTLP_ENDPOINT is set; otherwise the global no-op provider
// stays in place.
package telemetry

import (
	"context"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Setup installs a tracer provider and returns a function that flushes and
// stops it.
func Setup(ctx context.Context, service, version string) (func(context.Context) error, error) {
	endpoint := os.Getenv(EndpointEnv)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating trace exporter")
	}

	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		service = name
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(service),
		semconv.ServiceVersionKey.String(version),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	log.Infof("Exporting traces to %s", endpoint)

	return provider.Shutdown, nil
}
