package domain

import "time"

// ArtifactType — закрытый набор тегов, описывающих семантику
// содержимого артефакта.
type ArtifactType string

const (
	// ArtifactTypeProfile — профиль пользователя от profile-агента.
	ArtifactTypeProfile ArtifactType = "profile"

	// ArtifactTypeTrends — трендовые категории от trends-агента.
	ArtifactTypeTrends ArtifactType = "trends"

	// ArtifactTypeCatalog — каталог товаров от catalog-агента.
	ArtifactTypeCatalog ArtifactType = "catalog"

	// ArtifactTypeValidationReport — отчёт валидации собранных данных.
	ArtifactTypeValidationReport ArtifactType = "validation_report"

	// ArtifactTypeRecommendations — финальный результат агрегации.
	ArtifactTypeRecommendations ArtifactType = "recommendations"
)

// Ключи служебных полей внутри artifact_data.
const (
	// FallbackKey помечает синтезированный placeholder-артефакт.
	FallbackKey = "fallback"

	// FallbackReasonKey — причина fallback'а (текст ошибки шага).
	FallbackReasonKey = "fallback_reason"
)

// Artifact — персистентная запись результата одного шага.
//
// Артефакты append-only: запись никогда не мутируется, при retry шага
// добавляется новая строка с тем же ключом (run_id, step_name, type).
// Чтение по ключу возвращает последнюю по created_at (при равенстве —
// по id).
type Artifact struct {
	// ID — монотонный системный идентификатор (bigserial).
	ID int64 `json:"id"`

	// RunID — идентификатор run, которому принадлежит артефакт.
	RunID string `json:"run_id"`

	// StepName — имя шага, породившего артефакт.
	StepName string `json:"step_name"`

	// Type — тег типа артефакта.
	Type ArtifactType `json:"artifact_type"`

	// Data — произвольный структурированный документ.
	Data map[string]any `json:"artifact_data"`

	// CreatedAt — время записи.
	CreatedAt time.Time `json:"created_at"`
}

// IsFallback возвращает true, если артефакт синтезирован fallback'ом,
// а не получен от агента.
func (a *Artifact) IsFallback() bool {
	v, ok := a.Data[FallbackKey]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
