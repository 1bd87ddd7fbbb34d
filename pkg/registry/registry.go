// Package registry provides concurrency-safe agent registration and lookup.
package registry

import (
	"log/slog"
	"sync"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// Registry is a name-to-agent mapping shared between the orchestrator and the
// management surface. Registration order is preserved because selection falls
// back to the first capable agent; re-registering a type name overwrites the
// previous agent in place.
type Registry struct {
	mu     sync.RWMutex
	logger *slog.Logger
	agents map[string]protocol.Agent
	order  []string
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With("module", "agent_registry"),
		agents: make(map[string]protocol.Agent),
	}
}

// Register adds the agent under its type name, replacing any previous
// registration. An overwrite keeps the original position in the order.
func (r *Registry) Register(agent protocol.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := agent.AgentType()
	if _, exists := r.agents[name]; !exists {
		r.order = append(r.order, name)
	}

	r.agents[name] = agent
	r.logger.Info("Registered agent", "agent_type", name)
}

// Unregister removes the agent registered under the type name. Executions
// already holding the agent keep using it.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return
	}

	delete(r.agents, name)

	for i, registered := range r.order {
		if registered == name {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	r.logger.Info("Unregistered agent", "agent_type", name)
}

// Get returns the agent registered under the type name, or nil.
func (r *Registry) Get(name string) protocol.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.agents[name]
}

// Names returns the registered type names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Select picks the agent for a phase: the preferred type name wins if it is
// registered and can handle the context; otherwise the first registered agent
// whose CanHandle returns true. Returns nil when no agent qualifies.
func (r *Registry) Select(preferred string, execCtx models.ExecutionContext) protocol.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if agent, ok := r.agents[preferred]; ok && agent.CanHandle(execCtx) {
		return agent
	}

	for _, name := range r.order {
		if name == preferred {
			continue
		}

		if agent := r.agents[name]; agent.CanHandle(execCtx) {
			return agent
		}
	}

	return nil
}
