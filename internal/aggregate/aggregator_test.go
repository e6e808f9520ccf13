package aggregate

import (
	"context"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

func writeArtifact(t *testing.T, mem *store.Memory, runID string, artifactType domain.ArtifactType, data map[string]any) {
	t.Helper()
	if _, err := mem.Write(context.Background(), runID, "step-"+string(artifactType), artifactType, data); err != nil {
		t.Fatalf("Write(%s) error = %v", artifactType, err)
	}
}

func sourceOf(t *testing.T, result *domain.AggregateResult, id string) domain.RecommendationSource {
	t.Helper()
	for _, item := range result.Items {
		if item.ID == id {
			return item.Source
		}
	}
	t.Fatalf("item %q not in result: %+v", id, result.Items)
	return ""
}

func TestAggregate_RanksPreferredTrendingFirst(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-001", domain.ArtifactTypeProfile, map[string]any{
		"preferredCategories": []any{"electronics"},
	})
	writeArtifact(t, mem, "run-001", domain.ArtifactTypeTrends, map[string]any{
		"trendingCategories": []any{"electronics", "books"},
	})
	writeArtifact(t, mem, "run-001", domain.ArtifactTypeCatalog, map[string]any{
		"items": []any{
			map[string]any{"id": "p1", "category": "electronics"},
			map[string]any{"id": "p2", "category": "books"},
		},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-001", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(result.Items))
	}
	if result.Items[0].ID != "p1" || result.Items[1].ID != "p2" {
		t.Errorf("order = [%s, %s], want [p1, p2]", result.Items[0].ID, result.Items[1].ID)
	}
	if got := sourceOf(t, result, "p1"); got != domain.SourcePreferenceTrending {
		t.Errorf("p1 source = %s, want %s", got, domain.SourcePreferenceTrending)
	}
	if got := sourceOf(t, result, "p2"); got != domain.SourceTrending {
		t.Errorf("p2 source = %s, want %s", got, domain.SourceTrending)
	}
	if result.Fallback {
		t.Error("Fallback = true for run with artifacts")
	}
}

func TestAggregate_SnakeCaseKeys(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-sc", domain.ArtifactTypeProfile, map[string]any{
		"preferred_categories": []any{"books"},
	})
	writeArtifact(t, mem, "run-sc", domain.ArtifactTypeTrends, map[string]any{
		"trending_categories": []any{"books"},
	})
	writeArtifact(t, mem, "run-sc", domain.ArtifactTypeCatalog, map[string]any{
		"items": []any{map[string]any{"id": "b1", "category": "books"}},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-sc", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := sourceOf(t, result, "b1"); got != domain.SourcePreferenceTrending {
		t.Errorf("b1 source = %s, want %s", got, domain.SourcePreferenceTrending)
	}
}

func TestAggregate_ViewedNotPurchased(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-v", domain.ArtifactTypeProfile, map[string]any{
		"viewed_items":    []any{"p1", "p2"},
		"purchased_items": []any{"p2"},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-v", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1: %+v", len(result.Items), result.Items)
	}
	if result.Items[0].ID != "p1" || result.Items[0].Source != domain.SourceViewed {
		t.Errorf("item = %+v, want p1/%s", result.Items[0], domain.SourceViewed)
	}
}

func TestAggregate_CatalogOnlyFallsBackToCatalog(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-c", domain.ArtifactTypeCatalog, map[string]any{
		"items": []any{
			map[string]any{"id": "x1", "category": "garden"},
			map[string]any{"id": "x2", "category": "toys"},
		},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-c", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(result.Items))
	}
	for _, item := range result.Items {
		if item.Source != domain.SourceCatalogFallback {
			t.Errorf("item %s source = %s, want %s", item.ID, item.Source, domain.SourceCatalogFallback)
		}
	}
}

func TestAggregate_NoArtifactsSynthesizesPlaceholder(t *testing.T) {
	mem := store.NewMemory()

	result, err := New(mem, nil).Aggregate(context.Background(), "run-empty", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true")
	}
	if len(result.Items) == 0 {
		t.Fatal("placeholder result must be non-empty")
	}
	for _, item := range result.Items {
		if item.Source != domain.SourcePlaceholder {
			t.Errorf("item %s source = %s, want %s", item.ID, item.Source, domain.SourcePlaceholder)
		}
	}
}

func TestAggregate_OnlyFallbackArtifactsSynthesizesPlaceholder(t *testing.T) {
	// Все агенты были недоступны: каждый шаг записал fallback-заглушку
	// без сигналов. Результат всё равно должен быть непустым.
	mem := store.NewMemory()
	for _, artifactType := range []domain.ArtifactType{
		domain.ArtifactTypeProfile,
		domain.ArtifactTypeTrends,
		domain.ArtifactTypeCatalog,
	} {
		writeArtifact(t, mem, "run-down", artifactType, map[string]any{
			domain.FallbackKey:       true,
			domain.FallbackReasonKey: "agent unavailable",
		})
	}

	result, err := New(mem, nil).Aggregate(context.Background(), "run-down", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true")
	}
	if len(result.Items) == 0 {
		t.Fatal("result must be non-empty when all artifacts are fallback stubs")
	}
	for _, item := range result.Items {
		if item.Source != domain.SourcePlaceholder {
			t.Errorf("item %s source = %s, want %s", item.ID, item.Source, domain.SourcePlaceholder)
		}
	}
}

func TestAggregate_MaxItemsCap(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-cap", domain.ArtifactTypeCatalog, map[string]any{
		"items": []any{
			map[string]any{"id": "i1", "category": "a"},
			map[string]any{"id": "i2", "category": "b"},
			map[string]any{"id": "i3", "category": "c"},
		},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-cap", 2)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(result.Items))
	}
}

func TestAggregate_NoDuplicates(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-d", domain.ArtifactTypeProfile, map[string]any{
		"preferred_categories": []any{"electronics"},
		"viewed_items":         []any{"p1"},
	})
	writeArtifact(t, mem, "run-d", domain.ArtifactTypeTrends, map[string]any{
		"trending_categories": []any{"electronics"},
	})
	writeArtifact(t, mem, "run-d", domain.ArtifactTypeCatalog, map[string]any{
		"items": []any{map[string]any{"id": "p1", "category": "electronics"}},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-d", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1 (p1 qualifies for three tiers): %+v", len(result.Items), result.Items)
	}
	if result.Items[0].Source != domain.SourcePreferenceTrending {
		t.Errorf("source = %s, want highest tier %s", result.Items[0].Source, domain.SourcePreferenceTrending)
	}
}

func TestAggregate_MissingTypesDegradeGracefully(t *testing.T) {
	mem := store.NewMemory()
	writeArtifact(t, mem, "run-m", domain.ArtifactTypeTrends, map[string]any{
		"trending_categories": []any{"books"},
	})
	writeArtifact(t, mem, "run-m", domain.ArtifactTypeCatalog, map[string]any{
		"items": []any{map[string]any{"id": "b1", "category": "books"}},
	})

	result, err := New(mem, nil).Aggregate(context.Background(), "run-m", 10)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := sourceOf(t, result, "b1"); got != domain.SourceTrending {
		t.Errorf("b1 source = %s, want %s (no profile signal)", got, domain.SourceTrending)
	}
}
