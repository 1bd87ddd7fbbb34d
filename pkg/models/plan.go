package models

// Plan is the structure produced by the planning capability. The kernel only
// walks its steps; what the steps mean is the executor's business.
type Plan struct {
	ID                string         `json:"id"`
	Steps             []PlanStep     `json:"steps"`
	RiskLevel         string         `json:"risk_level,omitempty"`
	EstimatedDuration int64          `json:"estimated_duration_ms,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// PlanStep is one named unit of work inside a plan. DependsOn references the
// IDs of earlier steps whose outputs this step consumes; OutputSchema is an
// optional JSON schema the validation capability checks the step output
// against.
type PlanStep struct {
	ID           string         `json:"id"           validate:"required"`
	Name         string         `json:"name"         validate:"required"`
	Action       string         `json:"action"       validate:"required"`
	DependsOn    []string       `json:"depends_on,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
}

// StepOutcome records one step's execution inside the ACT phase.
type StepOutcome struct {
	StepID    string         `json:"step_id"`
	Status    ResultStatus   `json:"status"`
	Attempts  int            `json:"attempts"`
	BackoffMs int64          `json:"backoff_ms"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Severity classifies a validation finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Finding is one observation the validation capability made about an
// execution's outcomes.
type Finding struct {
	Severity Severity `json:"severity"`
	StepID   string   `json:"step_id,omitempty"`
	Message  string   `json:"message"`
}

// StatusForFindings maps validation findings onto a phase status: any
// error/critical finding fails the phase, any warning makes it partial.
func StatusForFindings(findings []Finding) ResultStatus {
	status := ResultStatusSuccess

	for _, finding := range findings {
		switch finding.Severity {
		case SeverityError, SeverityCritical:
			return ResultStatusFailure
		case SeverityWarning:
			status = ResultStatusPartial
		}
	}

	return status
}
