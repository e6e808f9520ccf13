package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

// Количество синтезированных позиций в placeholder-результате.
const placeholderItems = 3

// Aggregator собирает финальную рекомендацию из артефактов одного run.
type Aggregator struct {
	store  store.Store
	logger *slog.Logger
}

// New создаёт новый Aggregator.
func New(st store.Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: st, logger: logger}
}

// Aggregate читает артефакты run и применяет политику приоритетов.
//
// Уровни приоритета (по убыванию):
//  1. позиции каталога в категориях из пересечения предпочтений
//     и трендов;
//  2. просмотренные, но не купленные позиции из профиля;
//  3. позиции каталога в трендовых категориях;
//  4. остальные позиции каталога.
//
// maxItems <= 0 снимает ограничение на размер результата. Этот путь
// доступен только прямым вызовам: нормализованная конфигурация run
// всегда несёт положительный max_items.
//
// Отсутствующий артефакт заменяется пустым набором сигналов —
// агрегация никогда не падает из-за неполных данных. Если ни один
// уровень не дал ни одной позиции (артефактов нет совсем либо все
// они fallback-заглушки без сигналов), возвращается синтезированный
// placeholder с Fallback=true — результат непустой всегда.
func (a *Aggregator) Aggregate(ctx context.Context, runID string, maxItems int) (*domain.AggregateResult, error) {
	profile, err := a.readSignal(ctx, runID, domain.ArtifactTypeProfile)
	if err != nil {
		return nil, err
	}
	trends, err := a.readSignal(ctx, runID, domain.ArtifactTypeTrends)
	if err != nil {
		return nil, err
	}
	catalog, err := a.readSignal(ctx, runID, domain.ArtifactTypeCatalog)
	if err != nil {
		return nil, err
	}

	preferred := toSet(stringsByKey(profile, "preferred_categories", "preferredCategories"))
	viewed := stringsByKey(profile, "viewed_items", "viewedItems", "viewed")
	purchased := toSet(stringsByKey(profile, "purchased_items", "purchasedItems", "purchased"))
	trending := toSet(stringsByKey(trends, "trending_categories", "trendingCategories"))
	items := catalogItems(catalog)

	result := &domain.AggregateResult{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
	}
	seen := make(map[string]bool)

	add := func(item domain.RecommendedItem) bool {
		if item.ID == "" || seen[item.ID] {
			return true
		}
		seen[item.ID] = true
		result.Items = append(result.Items, item)
		return maxItems <= 0 || len(result.Items) < maxItems
	}

	// Уровень 1: предпочитаемые и одновременно трендовые категории.
	for _, it := range items {
		if preferred[it.Category] && trending[it.Category] {
			if !add(domain.RecommendedItem{ID: it.ID, Category: it.Category, Source: domain.SourcePreferenceTrending}) {
				return result, nil
			}
		}
	}

	// Уровень 2: просмотрено, но не куплено.
	categories := categoryByID(items)
	for _, id := range viewed {
		if purchased[id] {
			continue
		}
		if !add(domain.RecommendedItem{ID: id, Category: categories[id], Source: domain.SourceViewed}) {
			return result, nil
		}
	}

	// Уровень 3: трендовые категории без учёта предпочтений.
	for _, it := range items {
		if trending[it.Category] {
			if !add(domain.RecommendedItem{ID: it.ID, Category: it.Category, Source: domain.SourceTrending}) {
				return result, nil
			}
		}
	}

	// Уровень 4: остаток каталога.
	for _, it := range items {
		if !add(domain.RecommendedItem{ID: it.ID, Category: it.Category, Source: domain.SourceCatalogFallback}) {
			return result, nil
		}
	}

	// Ни одного сигнала: артефактов нет либо все шаги завершились
	// fallback-заглушками (все агенты недоступны в development mode).
	if len(result.Items) == 0 {
		a.logger.Warn("no usable signals for run, synthesizing placeholder result", "run_id", runID)
		return placeholderResult(runID), nil
	}

	return result, nil
}

// readSignal возвращает данные последнего артефакта типа или nil,
// если артефакт отсутствует.
func (a *Aggregator) readSignal(ctx context.Context, runID string, t domain.ArtifactType) (map[string]any, error) {
	artifact, err := a.store.ReadLatest(ctx, runID, t)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s artifact: %w", t, err)
	}
	return artifact.Data, nil
}

// placeholderResult синтезирует непустой результат при полном
// отсутствии артефактов.
func placeholderResult(runID string) *domain.AggregateResult {
	result := &domain.AggregateResult{
		RunID:       runID,
		Fallback:    true,
		GeneratedAt: time.Now().UTC(),
	}
	for i := 1; i <= placeholderItems; i++ {
		result.Items = append(result.Items, domain.RecommendedItem{
			ID:     fmt.Sprintf("placeholder-%d", i),
			Source: domain.SourcePlaceholder,
		})
	}
	return result
}

// --- Извлечение сигналов ---

// catalogItem — позиция каталога из артефакта.
type catalogItem struct {
	ID       string
	Category string
}

// catalogItems извлекает позиции из catalog-артефакта, сохраняя порядок.
func catalogItems(data map[string]any) []catalogItem {
	if data == nil {
		return nil
	}
	raw, ok := data["items"].([]any)
	if !ok {
		return nil
	}

	var items []catalogItem
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		category, _ := m["category"].(string)
		items = append(items, catalogItem{ID: id, Category: category})
	}
	return items
}

// stringsByKey извлекает список строк по первому из ключей, который
// присутствует. Артефакты проходят через JSON, поэтому списки приходят
// как []any. Ключи принимаются в обоих написаниях (snake_case от
// наших агентов, camelCase от внешних).
func stringsByKey(data map[string]any, keys ...string) []string {
	if data == nil {
		return nil
	}
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		switch typed := raw.(type) {
		case []string:
			return typed
		case []any:
			var out []string
			for _, v := range typed {
				if s, ok := v.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

// toSet строит set из списка строк.
func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// categoryByID строит индекс категорий каталога по id позиции.
func categoryByID(items []catalogItem) map[string]string {
	index := make(map[string]string, len(items))
	for _, it := range items {
		index[it.ID] = it.Category
	}
	return index
}
