package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func stringEnum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func strengthEnum() map[string]any {
	return stringEnum(string(domain.StrengthWeak), string(domain.StrengthModerate), string(domain.StrengthStrong))
}

// ResultSchema is the JSON schema every AnalysisResult leaving the pipeline satisfies.
func ResultSchema() map[string]any {
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": domain.RequiredAnalysisFields,
		"properties": map[string]any{
			domain.FieldDocumentSummary:    map[string]any{"type": "string"},
			domain.FieldClaimValueEstimate: map[string]any{"type": "integer", "minimum": 0},
			domain.FieldTrackAssessment: stringEnum(
				string(domain.TrackSmallClaims), string(domain.TrackFastTrack), string(domain.TrackMultiTrack),
			),
			domain.FieldLegalCategories: stringList(),
			domain.FieldClaimantArguments: map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"argument", "legal_basis", "strength"},
					"properties": map[string]any{
						"argument":    map[string]any{"type": "string"},
						"legal_basis": map[string]any{"type": "string"},
						"strength":    strengthEnum(),
					},
				},
			},
			domain.FieldDefencePoints: map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"defence_strategy", "legal_basis", "evidence_required", "strength", "track"},
					"properties": map[string]any{
						"defence_strategy":  map[string]any{"type": "string"},
						"legal_basis":       map[string]any{"type": "string"},
						"evidence_required": map[string]any{"type": "string"},
						"strength":          strengthEnum(),
						"track":             map[string]any{"type": "string"},
					},
				},
			},
			domain.FieldProceduralConsiderations: stringList(),
			domain.FieldEvidenceStrategy:         stringList(),
			domain.FieldSettlementConsiderations: map[string]any{"type": "string"},
			domain.FieldCostsConsiderations:      map[string]any{"type": "string"},
			domain.FieldUrgencyLevel: stringEnum(
				string(domain.UrgencyLow), string(domain.UrgencyMedium), string(domain.UrgencyHigh),
			),
		},
	}
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(ResultSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis_result.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("analysis_result.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// CheckConformance validates a typed result against ResultSchema.
func CheckConformance(result domain.AnalysisResult) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("analysis result does not match schema: %w", err)
	}
	return nil
}
