// Package models defines the core domain models for four-phase agent orchestration.
package models

// Intent describes what the caller wants an execution to accomplish.
// Modifiers carry free-form qualifiers inferred upstream (flags, hints,
// parameters); the kernel treats them as opaque.
type Intent struct {
	Name      string         `json:"name"      validate:"required,min=1"`
	Target    string         `json:"target"    validate:"required,min=1"`
	Modifiers map[string]any `json:"modifiers,omitempty"`
}

// ProjectState is a point-in-time snapshot of upstream project state taken
// when the execution was submitted. It is never refreshed mid-execution.
type ProjectState struct {
	Snapshot map[string]any `json:"snapshot,omitempty"`
}
