package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxRunIDLength — предел длины run_id (ограничение схемы artifacts.run_id).
const MaxRunIDLength = 64

// Run — один сквозной прогон пайплайна.
//
// Run создаётся когда:
// - Пользователь запускает пайплайн через API/CLI
// - Scheduler создаёт run по расписанию
//
// После перехода в терминальный статус run неизменяем,
// кроме самого перехода статуса.
type Run struct {
	// ID — идентификатор run (строка ≤64 символов).
	// Задаётся вызывающей стороной или генерируется системой.
	ID string `json:"id"`

	// UserID — пользователь, для которого выполняется пайплайн.
	UserID string `json:"user_id"`

	// Mode — режим выполнения: normal или development.
	Mode Mode `json:"mode"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Config — сырая конфигурация, переданная при создании run.
	// Нормализуется в PipelineConfig перед выполнением первого шага.
	Config map[string]any `json:"config,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (в любом терминальном статусе).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRunID генерирует идентификатор run.
func NewRunID() string {
	return uuid.New().String()
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkCompleted переводит run в статус COMPLETED.
func (r *Run) MarkCompleted() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.FinishedAt = &now
}

// MarkPartial переводит run в статус PARTIAL.
func (r *Run) MarkPartial() {
	now := time.Now()
	r.Status = RunStatusPartial
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}
