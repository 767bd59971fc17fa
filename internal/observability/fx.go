package observability

import (
	"github.com/smallbiznis/orgadmin/internal/observability/logger"
	"github.com/smallbiznis/orgadmin/internal/observability/metrics"
	"github.com/smallbiznis/orgadmin/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.New,
		metrics.NewPusher,
	),
	fx.Invoke(metrics.RegisterPushOnStop),
)

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		File:                cfg.LogFile,
		Debug:               cfg.Debug,
		IncludeCaller:       cfg.Debug,
		IncludeStackOnError: cfg.Debug,
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName:    cfg.ServiceName,
		Environment:    cfg.Environment,
		PushgatewayURL: cfg.PushgatewayURL,
		PushgatewayJob: cfg.PushgatewayJob,
	}
}
