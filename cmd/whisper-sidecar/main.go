// Command whisper-sidecar serves offline speech-to-text over stdin/stdout.
// Each input line is a JSON request, each output line a JSON response.
// Diagnostics go to stderr.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/whisper-sidecar/bootstrap"
	"github.com/kbukum/whisper-sidecar/config"
	"github.com/kbukum/whisper-sidecar/internal/models"
	"github.com/kbukum/whisper-sidecar/internal/orchestrator"
	"github.com/kbukum/whisper-sidecar/internal/sidecar"
	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/observability"
	"github.com/kbukum/whisper-sidecar/transcription/whisper"
	"github.com/kbukum/whisper-sidecar/util"
	"github.com/kbukum/whisper-sidecar/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet(sidecar.ServiceName, pflag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	configFile := flags.String("config", "", "path to config.yml")
	envFile := flags.String("env-file", "", "path to a .env file")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Println(version.Get().String())
		return 0
	}

	config.RegisterSections(sidecar.Sections...)
	var cfg sidecar.Config
	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	if err := config.LoadConfig(sidecar.ServiceName, &cfg, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	cfg.Version = util.Coalesce(cfg.Version, version.Version)

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 1
	}
	log := app.Logger
	log.Info("Whisper sidecar starting", version.Get().Fields())

	ctx := context.Background()

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Telemetry, observability.Resource{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		log.Warn("Telemetry export disabled", logger.ErrorFields("telemetry", err))
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		log.Warn("Metrics disabled", logger.ErrorFields("metrics", err))
	}

	catalog := models.NewCatalog(cfg.Models.Dir, log)
	modelProvider := models.NewProvider(
		models.WhisperCapability(whisper.NewDriver(cfg.Whisper, log)),
		catalog,
		models.WithMetrics(metrics),
		models.WithLogger(log),
	)
	orch := orchestrator.New(modelProvider,
		orchestrator.WithStagingDir(cfg.Staging.Dir),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithLogger(log),
	)
	loop := sidecar.NewLoop(orch, os.Stdin, os.Stdout,
		sidecar.WithMetrics(metrics),
		sidecar.WithLogger(log),
	)

	app.OnStart(modelProvider.EnsureCapability, func(ctx context.Context) error {
		catalog.LogCatalog(log)
		return nil
	})
	app.OnStop(bootstrap.Hook(shutdownTelemetry), modelProvider.Close)

	err = app.RunTask(ctx, loop.Run)
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, context.Canceled):
		log.Info("Service interrupted")
		return 0
	default:
		log.Error("Service error", logger.ErrorFields("run", err))
		return 1
	}
}
