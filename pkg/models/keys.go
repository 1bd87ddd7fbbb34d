package models

import "encoding/json"

// Well-known payload keys agents use to pass data across phases. Payloads are
// open-ended maps; these are just the keys the built-in agents agree on.
const (
	KeyPlan            = "plan"
	KeyStepOutputs     = "step_outputs"
	KeyStepOutcomes    = "step_outcomes"
	KeyFailedStep      = "failed_step"
	KeyFindings        = "findings"
	KeyInsights        = "insights"
	KeyRecommendations = "recommendations"
)

// PlanFromContext retrieves the plan an earlier phase published under
// KeyPlan. Payloads that crossed a serialization boundary come back as plain
// maps, so a JSON round-trip covers that shape too.
func PlanFromContext(execCtx ExecutionContext) (*Plan, bool) {
	value, ok := execCtx.DataValue(KeyPlan)
	if !ok {
		return nil, false
	}

	switch plan := value.(type) {
	case *Plan:
		return plan, true
	case Plan:
		return &plan, true
	case map[string]any:
		data, err := json.Marshal(plan)
		if err != nil {
			return nil, false
		}

		var decoded Plan
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, false
		}

		return &decoded, true
	default:
		return nil, false
	}
}

// StepOutcomesFromContext retrieves the ACT phase step outcomes published
// under KeyStepOutcomes.
func StepOutcomesFromContext(execCtx ExecutionContext) ([]StepOutcome, bool) {
	value, ok := execCtx.DataValue(KeyStepOutcomes)
	if !ok {
		return nil, false
	}

	switch outcomes := value.(type) {
	case []StepOutcome:
		return outcomes, true
	case []any:
		data, err := json.Marshal(outcomes)
		if err != nil {
			return nil, false
		}

		var decoded []StepOutcome
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, false
		}

		return decoded, true
	default:
		return nil, false
	}
}
