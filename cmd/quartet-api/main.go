package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/quartetdev/quartet/pkg/cmd"
	"github.com/quartetdev/quartet/pkg/log"
	"github.com/quartetdev/quartet/pkg/orchestrator"
	"github.com/quartetdev/quartet/pkg/otelhelper"
	"github.com/quartetdev/quartet/pkg/queue"
	"github.com/quartetdev/quartet/pkg/runner"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "quartet-api",
		Usage:                 "Serve the execution control plane",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Trace store URL (file path or postgres URL)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "intent-queue",
				Usage:   "Redis list key to consume intent submissions from (disabled when empty)",
				Sources: cli.EnvVars("INTENT_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the intent queue",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Quartet API")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "quartet-api", logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	registry := cmd.NewDefaultRegistry(logger)
	orch := orchestrator.NewOrchestrator(logger, registry, store.Traces(), eventBus)

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "quartet-api")
		if err != nil {
			return err
		}

		orch.SetTracer(tracer)
	}

	asyncRunner := runner.NewRunner(logger, orch)

	defer func() {
		if err := asyncRunner.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down runner", "error", err)
		}
	}()

	if queueKey := command.String("intent-queue"); queueKey != "" {
		consumer, err := queue.NewConsumer(logger, asyncRunner, command.String("redis-addr"), "", 0, queueKey)
		if err != nil {
			return err
		}

		if err := consumer.Start(ctx); err != nil {
			return err
		}

		defer func() {
			if err := consumer.Stop(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop intent queue consumer", "error", err)
			}
		}()
	}

	api := NewAPI(logger, orch, asyncRunner, store)

	return api.Start(command.Int("port"))
}
