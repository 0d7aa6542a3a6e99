package agent

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

//go:embed outline.schema.json
var outlineSchemaJSON string

// outlineSchema is compiled once at package init. The schema file is embedded
// and under our control, so compilation cannot fail at runtime.
var outlineSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("outline.schema.json", strings.NewReader(outlineSchemaJSON)); err != nil {
		panic(fmt.Sprintf("invalid embedded outline schema: %v", err))
	}
	return compiler.MustCompile("outline.schema.json")
}()

// SchemaVersion tags validation results so stored reports stay comparable
// across schema revisions.
const SchemaVersion = "1.0"

// Validator checks the scenario outline structurally (hard errors) and
// pedagogically (soft warnings). It never mutates its input and never calls
// the oracle.
type Validator struct {
	Base
}

// NewValidator creates the validator agent. It takes no oracle handle:
// validation is deterministic.
func NewValidator(board *blackboard.Board) *Validator {
	return &Validator{Base: NewBase(blackboard.AgentValidator, board, nil)}
}

// Execute reads scenario_outline (required), validates it against the
// embedded JSON Schema plus director-settings rules, writes
// validation_result, and returns the report. A structurally invalid outline
// is not an execution error; the report carries valid=false.
func (v *Validator) Execute(ctx context.Context) (*schema.ValidationResult, error) {
	raw, ok := v.read(blackboard.KeyScenarioOutline)
	if !ok {
		return nil, fmt.Errorf("validator requires scenario_outline: %w", ErrMissingInput)
	}

	result := schema.ValidationResult{
		Errors:        []schema.ValidationError{},
		Warnings:      []schema.ValidationWarning{},
		SchemaVersion: SchemaVersion,
		ValidatedAt:   time.Now().UTC(),
	}

	// Structural pass runs against the generic tree so shape errors (goals
	// not an array, goal missing id) surface with instance paths.
	if err := outlineSchema.Validate(raw); err != nil {
		result.Errors = append(result.Errors, flattenSchemaError(err)...)
	}

	var outline schema.ScenarioOutline
	if err := blackboard.Decode(raw, &outline); err == nil {
		result.Errors = append(result.Errors, validateDirectorSettings(outline.DirectorSettings)...)
		result.Warnings = append(result.Warnings, outlineWarnings(&outline)...)
	}

	result.Valid = len(result.Errors) == 0

	if err := v.write(blackboard.KeyValidationResult, result); err != nil {
		return nil, err
	}
	return &result, nil
}

// validateDirectorSettings applies the hard rules on proposed director
// settings. Absent settings are fine; the finalizer supplies defaults.
func validateDirectorSettings(ds *schema.OutlineDirectorSettings) []schema.ValidationError {
	if ds == nil {
		return nil
	}
	var errs []schema.ValidationError
	if ds.Intensity != "" {
		if err := ds.Intensity.Validate(); err != nil {
			errs = append(errs, schema.ValidationError{
				Source:  "director_settings",
				Path:    "director_settings.intensity",
				Message: err.Error(),
			})
		}
	}
	if ds.EvaluationFrequency <= 0 {
		errs = append(errs, schema.ValidationError{
			Source:  "director_settings",
			Path:    "director_settings.evaluation_frequency",
			Message: "no evaluation cadence defined",
		})
	}
	return errs
}

// outlineWarnings reports soft findings that do not block finalization.
func outlineWarnings(outline *schema.ScenarioOutline) []schema.ValidationWarning {
	var warnings []schema.ValidationWarning

	for _, g := range outline.Goals {
		if len(g.RequiredEvidence) == 0 {
			warnings = append(warnings, schema.ValidationWarning{
				Source:   "goals",
				Severity: "medium",
				Field:    g.ID,
				Message:  "goal has no required evidence; the director cannot track its progress",
			})
		}
		if len(g.Milestones) == 0 {
			warnings = append(warnings, schema.ValidationWarning{
				Source:   "goals",
				Severity: "low",
				Field:    g.ID,
				Message:  "goal has no milestones; completion will be binary",
			})
		}
	}

	if len(outline.DirectorTriggers) == 0 {
		warnings = append(warnings, schema.ValidationWarning{
			Source:   "director_settings",
			Severity: "low",
			Field:    "director_triggers",
			Message:  "no director triggers defined",
		})
	}

	if outline.DirectorSettings != nil && outline.DirectorSettings.Intensity == schema.IntensityOff {
		warnings = append(warnings, schema.ValidationWarning{
			Source:   "director_settings",
			Severity: "medium",
			Field:    "intensity",
			Message:  "director intensity is off; students receive no runtime guidance",
		})
	}

	return warnings
}

// flattenSchemaError converts a jsonschema validation error tree into flat
// path/message entries, keeping only leaf causes.
func flattenSchemaError(err error) []schema.ValidationError {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []schema.ValidationError{{
			Source:  "schema",
			Path:    "",
			Message: err.Error(),
		}}
	}

	var out []schema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := strings.TrimPrefix(e.InstanceLocation, "/")
			out = append(out, schema.ValidationError{
				Source:  "schema",
				Path:    strings.ReplaceAll(path, "/", "."),
				Message: e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
