// Package protocol defines the interfaces and contracts for pluggable agents.
package protocol

import (
	"context"

	"github.com/quartetdev/quartet/pkg/models"
)

// Well-known agent type names the orchestrator prefers per phase.
const (
	AgentTypePlanner    = "planner"
	AgentTypeExecutor   = "executor"
	AgentTypeValidator  = "validator"
	AgentTypeReflection = "reflection"
)

// Agent is a registered capability able to perform some subset of the four
// phases. Phase methods may return an error instead of a result; the
// orchestrator converts errors (and panics) into failure results, so agents
// never need to contain their own failures. An agent that does not
// participate in a phase returns a skipped result.
type Agent interface {
	// Plan produces a plan for the intent carried by the context.
	Plan(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error)

	// Act performs the side-effecting work the plan calls for.
	Act(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error)

	// Observe validates the outcomes produced by Act.
	Observe(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error)

	// Reflect analyzes the full phase history, including failures.
	Reflect(ctx context.Context, execCtx models.ExecutionContext) (models.AgentResult, error)

	// CanHandle reports whether this agent can serve the given context. It is
	// used only for selection and must be side-effect free.
	CanHandle(execCtx models.ExecutionContext) bool

	// AgentType returns the unique type name this agent registers under.
	AgentType() string
}
