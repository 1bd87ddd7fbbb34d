package validator

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/quartetdev/quartet/pkg/models"
)

// SchemaValidationService checks each step output against the JSON schema its
// plan step declared. Steps without a schema produce an info finding; failed
// steps produce an error finding; schema violations produce warnings.
type SchemaValidationService struct{}

func NewSchemaValidationService() *SchemaValidationService {
	return &SchemaValidationService{}
}

func (s *SchemaValidationService) Assess(_ context.Context, execCtx models.ExecutionContext, outcomes []models.StepOutcome) ([]models.Finding, error) {
	plan, _ := models.PlanFromContext(execCtx)
	schemas := make(map[string]map[string]any)

	if plan != nil {
		for _, step := range plan.Steps {
			if step.OutputSchema != nil {
				schemas[step.ID] = step.OutputSchema
			}
		}
	}

	findings := make([]models.Finding, 0, len(outcomes))

	for _, outcome := range outcomes {
		if outcome.Status == models.ResultStatusFailure {
			findings = append(findings, models.Finding{
				Severity: models.SeverityError,
				StepID:   outcome.StepID,
				Message:  fmt.Sprintf("step %s failed after %d attempts: %s", outcome.StepID, outcome.Attempts, outcome.Error),
			})

			continue
		}

		schema, ok := schemas[outcome.StepID]
		if !ok {
			findings = append(findings, models.Finding{
				Severity: models.SeverityInfo,
				StepID:   outcome.StepID,
				Message:  fmt.Sprintf("step %s has no output schema, skipping validation", outcome.StepID),
			})

			continue
		}

		schemaFindings, err := validateAgainstSchema(outcome, schema)
		if err != nil {
			return nil, err
		}

		findings = append(findings, schemaFindings...)
	}

	return findings, nil
}

func validateAgainstSchema(outcome models.StepOutcome, schema map[string]any) ([]models.Finding, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	outputLoader := gojsonschema.NewGoLoader(outcome.Output)

	validation, err := gojsonschema.Validate(schemaLoader, outputLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate output of step %s: %w", outcome.StepID, err)
	}

	if validation.Valid() {
		return []models.Finding{{
			Severity: models.SeverityInfo,
			StepID:   outcome.StepID,
			Message:  fmt.Sprintf("step %s output matches its schema", outcome.StepID),
		}}, nil
	}

	findings := make([]models.Finding, 0, len(validation.Errors()))

	for _, schemaErr := range validation.Errors() {
		findings = append(findings, models.Finding{
			Severity: models.SeverityWarning,
			StepID:   outcome.StepID,
			Message:  fmt.Sprintf("step %s output: %s", outcome.StepID, schemaErr.String()),
		})
	}

	return findings, nil
}
