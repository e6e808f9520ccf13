package domain

import "time"

// RecommendationSource — уровень политики приоритетов, на котором
// позиция попала в результат.
type RecommendationSource string

const (
	// SourcePreferenceTrending — категория и предпочитаемая, и трендовая.
	SourcePreferenceTrending RecommendationSource = "preference_trending"

	// SourceViewed — просмотрено ранее, но не куплено.
	SourceViewed RecommendationSource = "viewed"

	// SourceTrending — трендовая категория без учёта предпочтений.
	SourceTrending RecommendationSource = "trending"

	// SourceCatalogFallback — произвольная позиция каталога.
	SourceCatalogFallback RecommendationSource = "catalog_fallback"

	// SourcePlaceholder — синтезированная позиция при полном
	// отсутствии артефактов.
	SourcePlaceholder RecommendationSource = "placeholder"
)

// RecommendedItem — одна позиция финальной рекомендации.
type RecommendedItem struct {
	// ID — идентификатор позиции каталога.
	ID string `json:"id"`

	// Category — категория позиции (может быть пустой, если позиция
	// известна только по просмотрам).
	Category string `json:"category,omitempty"`

	// Source — уровень политики, давший позицию.
	Source RecommendationSource `json:"source"`
}

// AggregateResult — финальный результат агрегации артефактов одного run.
type AggregateResult struct {
	// RunID — идентификатор run.
	RunID string `json:"run_id"`

	// Items — позиции в порядке убывания приоритета.
	Items []RecommendedItem `json:"items"`

	// Fallback — true, если результат синтезирован без единого артефакта.
	Fallback bool `json:"fallback,omitempty"`

	// GeneratedAt — время агрегации.
	GeneratedAt time.Time `json:"generated_at"`
}
