package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const metricExportInterval = 30 * time.Second

// InitMeterProvider installs a global MeterProvider exporting over OTLP gRPC.
// Without an endpoint the global no-op provider stays in place.
func InitMeterProvider(ctx context.Context, clusterName string) (ShutdownFunc, error) {
	if endpoint() == "" {
		return noopShutdown, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	res, err := newResource(clusterName)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	slog.Info("telemetry: metrics enabled", "interval", metricExportInterval)
	return mp.Shutdown, nil
}

// InitLogProvider builds an OTLP log pipeline and returns a slog handler
// bridged onto it, to be fanned out next to the JSON handler. The handler is
// nil when export is disabled.
func InitLogProvider(ctx context.Context, clusterName string) (slog.Handler, ShutdownFunc, error) {
	if endpoint() == "" {
		return nil, noopShutdown, nil
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP log exporter: %w", err)
	}
	res, err := newResource(clusterName)
	if err != nil {
		return nil, nil, err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	return otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp)), lp.Shutdown, nil
}
