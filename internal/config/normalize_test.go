package config

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

func TestNormalize_TypedAndUntypedEquivalent(t *testing.T) {
	typed := &domain.PipelineConfig{
		UserID: "u-42",
		Mode:   domain.ModeDevelopment,
		Endpoints: map[string]string{
			"profile": "http://profile:8081",
			"trends":  "http://trends:8082",
		},
		TimeoutSec: 15,
		MaxItems:   5,
	}

	untyped := map[string]any{
		"user_id": "u-42",
		"mode":    "development",
		"endpoints": map[string]any{
			"profile": "http://profile:8081",
			"trends":  "http://trends:8082",
		},
		"timeout_sec": 15,
		"max_items":   5,
	}

	fromTyped, err := Normalize(typed)
	if err != nil {
		t.Fatalf("normalize typed: %v", err)
	}

	fromUntyped, err := Normalize(untyped)
	if err != nil {
		t.Fatalf("normalize untyped: %v", err)
	}

	if !reflect.DeepEqual(fromTyped, fromUntyped) {
		t.Errorf("typed and untyped configs differ:\n%+v\n%+v", fromTyped, fromUntyped)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := map[string]any{
		"user_id": "u-1",
		"mode":    "normal",
	}

	first, err := Normalize(raw)
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}

	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg, err := Normalize(map[string]any{"user_id": "u-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mode != domain.ModeNormal {
		t.Errorf("expected default mode normal, got %s", cfg.Mode)
	}
	if cfg.TimeoutSec != defaultTimeoutSec {
		t.Errorf("expected default timeout %d, got %d", defaultTimeoutSec, cfg.TimeoutSec)
	}
	if cfg.MaxItems != defaultMaxItems {
		t.Errorf("expected default max_items %d, got %d", defaultMaxItems, cfg.MaxItems)
	}
	if cfg.Endpoints == nil {
		t.Error("endpoints map should be initialized")
	}

	// Явный 0 неотличим от отсутствующего значения после границы
	// сериализации и тоже получает значение по умолчанию.
	cfg, err = Normalize(map[string]any{"user_id": "u-1", "max_items": 0, "timeout_sec": 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxItems != defaultMaxItems || cfg.TimeoutSec != defaultTimeoutSec {
		t.Errorf("explicit zeros: max_items = %d, timeout_sec = %d, want defaults", cfg.MaxItems, cfg.TimeoutSec)
	}
}

func TestNormalize_UnknownFieldsIgnored(t *testing.T) {
	cfg, err := Normalize(map[string]any{
		"user_id":       "u-1",
		"future_option": true,
		"nested":        map[string]any{"a": 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UserID != "u-1" {
		t.Errorf("expected user_id u-1, got %s", cfg.UserID)
	}
}

func TestNormalize_MissingUserID(t *testing.T) {
	_, err := Normalize(map[string]any{"mode": "normal"})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if vErr.Field != "user_id" {
		t.Errorf("expected field user_id, got %s", vErr.Field)
	}
}

func TestNormalize_InvalidMode(t *testing.T) {
	_, err := Normalize(map[string]any{"user_id": "u-1", "mode": "staging"})

	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestNormalize_MistypedField(t *testing.T) {
	_, err := Normalize(map[string]any{"user_id": "u-1", "timeout_sec": "thirty"})

	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestNormalize_BypassRequiresDevMode(t *testing.T) {
	_, err := Normalize(map[string]any{
		"user_id":       "u-1",
		"mode":          "normal",
		"bypass_agents": true,
	})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}

	cfg, err := Normalize(map[string]any{
		"user_id":       "u-1",
		"mode":          "development",
		"bypass_agents": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.BypassAgents {
		t.Error("bypass_agents should be preserved in development mode")
	}
}

func TestNormalize_UnsupportedShape(t *testing.T) {
	_, err := Normalize(42)

	if !errors.Is(err, ErrUnsupportedShape) {
		t.Fatalf("expected ErrUnsupportedShape, got %v", err)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	input := &domain.PipelineConfig{UserID: "u-1"}

	cfg, err := Normalize(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if input.Mode != "" || input.TimeoutSec != 0 {
		t.Error("input config should not be mutated")
	}
	if cfg == input {
		t.Error("normalize should return a copy")
	}
}

func TestValidatePipeline(t *testing.T) {
	tests := []struct {
		name    string
		spec    domain.PipelineSpec
		wantErr bool
	}{
		{
			name: "valid default pipeline",
			spec: *DefaultPipeline(),
		},
		{
			name:    "empty steps",
			spec:    domain.PipelineSpec{Name: "p"},
			wantErr: true,
		},
		{
			name: "duplicate step name",
			spec: domain.PipelineSpec{
				Name: "p",
				Steps: []domain.StepDef{
					{Name: "a", Agent: "profile", ArtifactType: domain.ArtifactTypeProfile},
					{Name: "a", Agent: "trends", ArtifactType: domain.ArtifactTypeTrends},
				},
			},
			wantErr: true,
		},
		{
			name: "missing agent",
			spec: domain.PipelineSpec{
				Name:  "p",
				Steps: []domain.StepDef{{Name: "a", ArtifactType: domain.ArtifactTypeProfile}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePipeline(&tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePipeline() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
