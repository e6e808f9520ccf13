package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ PARTIAL (development mode, часть шагов заменена fallback'ом)
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted — все шаги выполнены, агрегация успешна.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusPartial — run завершён, но часть артефактов синтезирована
	// fallback'ом (возможно только в development mode).
	RunStatusPartial RunStatus = "PARTIAL"

	// RunStatusFailed — run завершился с ошибкой.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Mode — режим выполнения run.
//
// Режим выбирается один раз при создании run и не пересматривается
// в процессе выполнения. Fallback-синтез и bypass-ребро разрешены
// только в development mode.
type Mode string

const (
	// ModeNormal — production-режим: недоступность агента после
	// исчерпания retry приводит к FAILED.
	ModeNormal Mode = "normal"

	// ModeDevelopment — режим разработки: недоступные агенты заменяются
	// синтезированными placeholder-артефактами.
	ModeDevelopment Mode = "development"
)

// Valid проверяет, что режим известен системе.
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeDevelopment
}
