package api

import (
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

// CreateRunRequest — запрос на создание run.
type CreateRunRequest struct {
	// ID — опциональный идентификатор run (≤64 символов);
	// при отсутствии генерируется системой.
	ID string `json:"id,omitempty"`

	// UserID — пользователь, для которого строятся рекомендации.
	UserID string `json:"user_id"`

	// Mode — режим выполнения (default: normal).
	Mode string `json:"mode,omitempty"`

	// Config — конфигурация пайплайна (endpoints, retry, max_items...).
	Config map[string]any `json:"config,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Mode       domain.Mode      `json:"mode"`
	Status     domain.RunStatus `json:"status"`
	Config     map[string]any   `json:"config,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		Mode:       r.Mode,
		Status:     r.Status,
		Config:     r.Config,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
	}
}

// ArtifactResponse — ответ с артефактом.
type ArtifactResponse struct {
	ID        int64               `json:"id"`
	RunID     string              `json:"run_id"`
	StepName  string              `json:"step_name"`
	Type      domain.ArtifactType `json:"artifact_type"`
	Data      map[string]any      `json:"artifact_data"`
	CreatedAt time.Time           `json:"created_at"`
}

// ArtifactFromDomain конвертирует domain.Artifact в ArtifactResponse.
func ArtifactFromDomain(a domain.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:        a.ID,
		RunID:     a.RunID,
		StepName:  a.StepName,
		Type:      a.Type,
		Data:      a.Data,
		CreatedAt: a.CreatedAt,
	}
}
