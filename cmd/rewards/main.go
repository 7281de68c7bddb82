package main

import (
	"context"
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"voyage-rewards/pkg/config"
	"voyage-rewards/pkg/db"
	"voyage-rewards/pkg/featureflags"
	"voyage-rewards/pkg/httpapi"
	"voyage-rewards/pkg/logger"
	"voyage-rewards/pkg/otelcol"
	"voyage-rewards/pkg/otelcol/exporters"
	"voyage-rewards/pkg/profiling"
	"voyage-rewards/pkg/redis"
	"voyage-rewards/pkg/sequence"
	"voyage-rewards/pkg/server"
	"voyage-rewards/pkg/task"
	"voyage-rewards/services/rewards"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		featureflags.Module,
		profiling.Module,
		fx.Provide(
			exporters.ProvideGrpc,
			exporters.ProvideMetricGrpc,
			provideTracerProvider,
			provideMeterProvider,
			provideSnowflakeNode,
		),
		fx.Invoke(setupTracing, setupMetrics, db.Metric),
		httpapi.Module,
		rewards.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func provideMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func setupTracing(lc fx.Lifecycle, exporter *otlptrace.Exporter) {
	tp := otelcol.ProvideTrace(exporter)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
}

func setupMetrics(lc fx.Lifecycle, exporter *otlpmetricgrpc.Exporter) {
	mp := otelcol.ProvideMetric(sdkmetric.NewPeriodicReader(exporter))
	otel.SetMeterProvider(mp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
}
