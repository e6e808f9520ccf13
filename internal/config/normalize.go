package config

import (
	"encoding/json"
	"fmt"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Значения по умолчанию канонической конфигурации.
const (
	defaultTimeoutSec = 30
	defaultMaxItems   = 10
)

// Normalize приводит конфигурацию run к канонической форме.
//
// Принимает либо уже типизированный *domain.PipelineConfig, либо
// нетипизированную map[string]any (конфигурация, прошедшая через
// границу сериализации — БД, очередь, HTTP). В обоих случаях результат
// идентичен: компоненты ниже по потоку никогда не различают исходную
// форму. Неизвестные поля игнорируются (forward compatibility).
//
// Normalize идемпотентна: Normalize(Normalize(x)) == Normalize(x).
// Вызывается ровно один раз на run, до выполнения первого шага.
func Normalize(raw any) (*domain.PipelineConfig, error) {
	var cfg domain.PipelineConfig

	switch v := raw.(type) {
	case *domain.PipelineConfig:
		if v == nil {
			return nil, NewValidationError("", "config is nil", ErrUnsupportedShape)
		}
		cfg = *v

	case domain.PipelineConfig:
		cfg = v

	case map[string]any:
		// Round-trip через JSON: map → каноническая структура.
		// Неизвестные ключи отбрасываются, несовместимые типы — ошибка.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, NewValidationError("", fmt.Sprintf("marshal config: %v", err), ErrInvalidField)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, NewValidationError("", fmt.Sprintf("decode config: %v", err), ErrInvalidField)
		}

	default:
		return nil, NewValidationError("", fmt.Sprintf("unexpected config type %T", raw), ErrUnsupportedShape)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// validate проверяет обязательные поля канонической конфигурации.
func validate(cfg *domain.PipelineConfig) error {
	if cfg.UserID == "" {
		return NewValidationError("user_id", "user_id is required", ErrMissingField)
	}

	if cfg.Mode != "" && !cfg.Mode.Valid() {
		return NewValidationError("mode",
			fmt.Sprintf("unknown mode %q (expected %q or %q)", cfg.Mode, domain.ModeNormal, domain.ModeDevelopment),
			ErrInvalidField)
	}

	mode := cfg.Mode
	if mode == "" {
		mode = domain.ModeNormal
	}

	// Bypass-ребро существует только в development mode; запрет здесь
	// держит production- и development-пути явными и проверяемыми.
	if cfg.BypassAgents && mode != domain.ModeDevelopment {
		return NewValidationError("bypass_agents", "bypass_agents requires development mode", ErrInvalidField)
	}

	if cfg.TimeoutSec < 0 {
		return NewValidationError("timeout_sec", "timeout_sec must be non-negative", ErrInvalidField)
	}
	if cfg.MaxItems < 0 {
		return NewValidationError("max_items", "max_items must be non-negative", ErrInvalidField)
	}

	if cfg.Retry != nil && cfg.Retry.MaxAttempts < 0 {
		return NewValidationError("retry.max_attempts", "max_attempts must be non-negative", ErrInvalidField)
	}

	return nil
}

// applyDefaults заполняет отсутствующие поля значениями по умолчанию.
//
// После границы сериализации нулевое значение неотличимо от
// отсутствующего, поэтому явные timeout_sec: 0 и max_items: 0 тоже
// получают значение по умолчанию. «Без ограничения» через
// конфигурацию не выражается: нормализованный config всегда несёт
// положительный max_items.
func applyDefaults(cfg *domain.PipelineConfig) {
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeNormal
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = map[string]string{}
	}
	if cfg.TimeoutSec == 0 {
		cfg.TimeoutSec = defaultTimeoutSec
	}
	if cfg.MaxItems == 0 {
		cfg.MaxItems = defaultMaxItems
	}
}
