package main

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/suffix-labs/dpc-auth/pkg/authorization"
	"github.com/suffix-labs/dpc-auth/pkg/config"
	"github.com/suffix-labs/dpc-auth/pkg/dpc"
	"github.com/suffix-labs/dpc-auth/pkg/metrics"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "Path to the YAML configuration file",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug, d",
		Usage: "Enable debug logging (overrides the configured level)",
	}
)

// environment is the state shared by every command.
type environment struct {
	cfg      config.Config
	logger   *zap.Logger
	scheme   *dpc.Testnet
	metrics  *metrics.Collector
	registry *prometheus.Registry
}

// builderOptions returns the builder options wired to the environment.
func (e *environment) builderOptions() []authorization.Option {
	return []authorization.Option{
		authorization.WithLogger(e.logger),
		authorization.WithMetrics(e.metrics),
	}
}

// withEnvironment loads the configuration, logger, metrics and scheme, runs
// fn and releases them again.
func withEnvironment(ctx *cli.Context, fn func(e *environment) error) error {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	logger, err := handleLoggingParams(ctx.GlobalBool("debug"), cfg.Logging)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = logger.Sync() }()

	env := &environment{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		env.registry = prometheus.NewRegistry()
		if env.metrics, err = metrics.NewCollector(cfg.Metrics.Namespace, env.registry); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	if env.scheme, err = dpc.LoadTestnet(); err != nil {
		return cli.NewExitError(err, 1)
	}

	runErr := fn(env)

	if env.registry != nil && cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, env.registry); err != nil {
			logger.Warn("failed to write metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	if runErr != nil {
		return cli.NewExitError(runErr, 1)
	}
	return nil
}

// handleLoggingParams builds the logger from the logging configuration.
func handleLoggingParams(debug bool, cfg config.Logging) (*zap.Logger, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.Level) > 0 {
		level, err = zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrap(err, "log setting")
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	if cfg.Encoding != "" {
		cc.Encoding = cfg.Encoding
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if cfg.Path != "" {
		cc.OutputPaths = []string{cfg.Path}
	}

	return cc.Build()
}
