package engine

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint — для агента шага не настроен endpoint.
var ErrNoEndpoint = errors.New("no endpoint configured for agent")

// StepError — ошибка выполнения шага.
//
// В normal mode StepError прерывает run со статусом FAILED.
// В development mode шаг вместо этого пишет fallback-артефакт,
// и StepError наружу не всплывает.
type StepError struct {
	// Step — имя шага.
	Step string

	// Err — причина ошибки.
	Err error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *StepError) Unwrap() error {
	return e.Err
}
