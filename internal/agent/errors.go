package agent

import (
	"errors"
	"fmt"
)

// FailureKind — классификация ошибки вызова агента.
type FailureKind string

const (
	// FailureRetryable — временная ошибка: connection refused, таймаут,
	// 5xx. Повторяется согласно политике retry.
	FailureRetryable FailureKind = "retryable"

	// FailureNonRetryable — постоянная ошибка: 4xx. Не повторяется,
	// возвращается после первой попытки.
	FailureNonRetryable FailureKind = "non_retryable"
)

// ErrAgentUnavailable — базовая ошибка недоступности агента.
var ErrAgentUnavailable = errors.New("agent unavailable")

// Failure — типизированная ошибка вызова агента.
//
// Kind определяет политику шага: retryable исчерпывает бюджет попыток,
// non_retryable всплывает сразу.
type Failure struct {
	// Kind — классификация ошибки.
	Kind FailureKind

	// Endpoint — адрес агента.
	Endpoint string

	// StatusCode — HTTP-код ответа (0 для транспортных ошибок).
	StatusCode int

	// Attempts — количество выполненных попыток.
	Attempts int

	// Err — базовая ошибка (транспортная или описание статуса).
	Err error
}

// Error реализует интерфейс error.
func (f *Failure) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("agent %s: HTTP %d (%s, %d attempts)", f.Endpoint, f.StatusCode, f.Kind, f.Attempts)
	}
	return fmt.Sprintf("agent %s: %v (%s, %d attempts)", f.Endpoint, f.Err, f.Kind, f.Attempts)
}

// Unwrap возвращает базовую ошибку.
func (f *Failure) Unwrap() error {
	return f.Err
}

// IsRetryable возвращает true для временных ошибок.
func (f *Failure) IsRetryable() bool {
	return f.Kind == FailureRetryable
}
