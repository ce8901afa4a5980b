// Package telemetry wires OpenTelemetry tracing, metrics and logs for the
// collections worker.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/collections/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ErrMeterNil is returned when a metrics constructor is given no meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

const (
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

// Config holds the settings shared by the trace, metric and log pipelines.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	SamplingRatio     float64
	ExportInterval    time.Duration
	LogsEnabled       bool
}

// FromConfig maps the application telemetry section onto Config.
func FromConfig(c config.TelemetryConfig) Config {
	return Config{
		Enabled:           c.Enabled,
		CollectorEndpoint: c.CollectorEndpoint,
		ServiceName:       c.ServiceName,
		Insecure:          c.Insecure,
		SamplingRatio:     c.SamplingRatio,
		ExportInterval:    c.ExportInterval,
		LogsEnabled:       c.LogsEnabled,
	}
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
