// Package telemetry wires the OpenTelemetry metrics pipeline: an OTLP
// exporter, a periodic reader, and the global meter provider the rest of
// the process records against.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Options configures the metrics pipeline.
type Options struct {
	// Enabled gates the whole pipeline; disabled means a no-op provider.
	Enabled bool
	// Endpoint is the OTLP collector endpoint, host:port.
	Endpoint string
	// Protocol is grpc or http.
	Protocol string
	// ServiceName identifies this process in exported metrics.
	ServiceName string
	// Insecure disables TLS toward the collector.
	Insecure bool
	// Interval is the export interval.
	Interval time.Duration
	// Version is the build version stamped on the resource.
	Version string
}

// Provider owns the meter provider lifecycle.
type Provider struct {
	mp     *sdkmetric.MeterProvider
	logger *zap.Logger
}

// New builds the pipeline and installs the global meter provider. With
// Enabled false it returns a provider whose Shutdown is a no-op, leaving
// the default (no-op) global in place.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Enabled {
		return &Provider{logger: logger}, nil
	}

	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}

	// Standalone resource: merging with resource.Default() conflicts when
	// the SDK's semconv schema version differs from the one pinned here.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.Version),
	)

	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	logger.Info("telemetry initialized",
		zap.String("endpoint", opts.Endpoint),
		zap.String("protocol", opts.Protocol),
		zap.Duration("interval", interval),
	)
	return &Provider{mp: mp, logger: logger}, nil
}

func newExporter(ctx context.Context, opts Options) (sdkmetric.Exporter, error) {
	switch opts.Protocol {
	case "http":
		httpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, httpOpts...)
	case "grpc", "":
		grpcOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, grpcOpts...)
	default:
		return nil, fmt.Errorf("unknown OTLP protocol %q", opts.Protocol)
	}
}

// Shutdown flushes pending metrics and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down meter provider: %w", err)
	}
	return nil
}
