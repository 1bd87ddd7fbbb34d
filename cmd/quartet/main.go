package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/quartetdev/quartet/pkg/cmd"
	"github.com/quartetdev/quartet/pkg/log"
	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/orchestrator"
)

func main() {
	command := &cli.Command{
		Name:                  "quartet",
		EnableShellCompletion: true,
		Usage:                 "Run one intent through the four-phase pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "intent",
				Usage:    "Intent name to execute",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target",
				Usage:    "Target the intent operates on",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "user-id",
				Usage:   "User identifier the execution runs under",
				Value:   "cli",
				Sources: cli.EnvVars("QUARTET_USER_ID"),
			},
			&cli.StringFlag{
				Name:    "project-id",
				Usage:   "Project identifier the execution runs under",
				Value:   "default",
				Sources: cli.EnvVars("QUARTET_PROJECT_ID"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Trace store URL (file path or postgres URL)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
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
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := slog.Default()

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() { _ = store.Close(ctx) }()

	registry := cmd.NewDefaultRegistry(logger)
	orch := orchestrator.NewOrchestrator(logger, registry, store.Traces(), nil)

	intent := models.Intent{
		Name:   command.String("intent"),
		Target: command.String("target"),
	}

	result := orch.Execute(ctx, intent, models.ProjectState{}, command.String("user-id"), command.String("project-id"))

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(encoded))

	if result.OverallStatus == models.ResultStatusFailure {
		return fmt.Errorf("execution %s failed", result.ExecutionID)
	}

	return nil
}
