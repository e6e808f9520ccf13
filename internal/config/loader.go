package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Имена агентов рекомендательного пайплайна.
const (
	AgentProfile    = "profile"
	AgentTrends     = "trends"
	AgentCatalog    = "catalog"
	AgentValidation = "validation"
)

// DefaultPipeline возвращает встроенную спецификацию рекомендательного
// пайплайна: profile → trends → catalog → validate.
func DefaultPipeline() *domain.PipelineSpec {
	return &domain.PipelineSpec{
		Name: "recommendations",
		Steps: []domain.StepDef{
			{Name: "fetch_profile", Agent: AgentProfile, ArtifactType: domain.ArtifactTypeProfile},
			{Name: "fetch_trends", Agent: AgentTrends, ArtifactType: domain.ArtifactTypeTrends},
			{Name: "fetch_catalog", Agent: AgentCatalog, ArtifactType: domain.ArtifactTypeCatalog},
			{Name: "validate", Agent: AgentValidation, ArtifactType: domain.ArtifactTypeValidationReport, SkipInDevMode: true},
		},
	}
}

// LoadPipeline загружает спецификацию пайплайна из YAML файла.
//
// Формат:
//
//	name: recommendations
//	steps:
//	  - name: fetch_profile
//	    agent: profile
//	    artifact_type: profile
//	  - name: validate
//	    agent: validation
//	    artifact_type: validation_report
//	    skip_in_dev_mode: true
func LoadPipeline(path string) (*domain.PipelineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}

	var spec domain.PipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse pipeline file: %w", err)
	}

	if err := ValidatePipeline(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ValidatePipeline проверяет структурную корректность спецификации.
func ValidatePipeline(spec *domain.PipelineSpec) error {
	if spec.Name == "" {
		return NewValidationError("name", "pipeline name is required", ErrMissingField)
	}
	if len(spec.Steps) == 0 {
		return NewValidationError("steps", "pipeline has no steps", ErrMissingField)
	}

	seen := make(map[string]bool, len(spec.Steps))
	for i := range spec.Steps {
		step := &spec.Steps[i]

		if step.Name == "" {
			return NewValidationError("steps", fmt.Sprintf("step %d has empty name", i), ErrMissingField)
		}
		if seen[step.Name] {
			return NewValidationError("steps", fmt.Sprintf("duplicate step name %q", step.Name), ErrInvalidField)
		}
		seen[step.Name] = true

		if step.Agent == "" {
			return NewValidationError("steps", fmt.Sprintf("step %q has no agent", step.Name), ErrMissingField)
		}
		if step.ArtifactType == "" {
			return NewValidationError("steps", fmt.Sprintf("step %q has no artifact_type", step.Name), ErrMissingField)
		}
	}

	return nil
}
