package domain

import "time"

// PipelineConfig — каноническая конфигурация run.
//
// Создаётся Config Normalizer'ом один раз перед выполнением первого
// шага и неизменна в течение run. Все шаги и агрегатор получают
// именно эту форму — ни один компонент ниже по потоку не различает,
// была ли исходная конфигурация типизированной или map'ой.
type PipelineConfig struct {
	// UserID — пользователь, для которого строятся рекомендации.
	UserID string `json:"user_id" yaml:"user_id"`

	// Mode — режим выполнения: normal или development.
	Mode Mode `json:"mode" yaml:"mode"`

	// Endpoints — базовые URL агентов по имени агента
	// (profile, trends, catalog, validation).
	Endpoints map[string]string `json:"endpoints" yaml:"endpoints"`

	// TimeoutSec — таймаут одной попытки вызова агента в секундах.
	TimeoutSec int `json:"timeout_sec" yaml:"timeout_sec"`

	// Retry — политика повторных попыток вызова агентов.
	Retry *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`

	// MaxItems — максимальное число позиций в финальной рекомендации.
	// Нулевое значение заменяется на значение по умолчанию при
	// нормализации.
	MaxItems int `json:"max_items" yaml:"max_items"`

	// BypassAgents — в development mode направляет выполнение по
	// bypass-ребру: от входного шага сразу к агрегации, минуя агентов.
	BypassAgents bool `json:"bypass_agents" yaml:"bypass_agents"`
}

// Timeout возвращает таймаут вызова агента как Duration.
func (c *PipelineConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// RetryPolicy — политика повторных попыток.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string `json:"backoff,omitempty" yaml:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty" yaml:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
}
