package cmd

import (
	"log/slog"

	"github.com/quartetdev/quartet/pkg/agents/executor"
	"github.com/quartetdev/quartet/pkg/agents/planner"
	"github.com/quartetdev/quartet/pkg/agents/reflector"
	"github.com/quartetdev/quartet/pkg/agents/validator"
	"github.com/quartetdev/quartet/pkg/registry"
)

// NewDefaultRegistry builds a registry with the four built-in agents wired to
// their deterministic default services.
func NewDefaultRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(planner.NewAgent(logger, planner.NewIntentPlanningService()))
	reg.Register(executor.NewAgent(logger, executor.EchoStepRunner()))
	reg.Register(validator.NewAgent(logger, validator.NewSchemaValidationService()))
	reg.Register(reflector.NewAgent(logger, reflector.NewHistoryReflectionService()))

	return reg
}
