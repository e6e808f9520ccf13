package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

func TestMemory_WriteAndReadLatest(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	written, err := s.Write(ctx, "run-1", "fetch_profile", domain.ArtifactTypeProfile,
		map[string]any{"preferred_categories": []any{"electronics"}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if written.ID == 0 {
		t.Error("written artifact should have an id")
	}

	got, err := s.ReadLatest(ctx, "run-1", domain.ArtifactTypeProfile)
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if got.StepName != "fetch_profile" {
		t.Errorf("expected step fetch_profile, got %s", got.StepName)
	}
}

func TestMemory_ReadLatest_NotFound(t *testing.T) {
	s := NewMemory()

	_, err := s.ReadLatest(context.Background(), "run-1", domain.ArtifactTypeProfile)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ReadLatest_DuplicatesResolvedByInsertionOrder(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	// Retry шага пишет новую строку с тем же ключом.
	if _, err := s.Write(ctx, "run-1", "fetch_trends", domain.ArtifactTypeTrends,
		map[string]any{"attempt": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	second, err := s.Write(ctx, "run-1", "fetch_trends", domain.ArtifactTypeTrends,
		map[string]any{"attempt": 2})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.ReadLatest(ctx, "run-1", domain.ArtifactTypeTrends)
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("expected latest id %d, got %d", second.ID, got.ID)
	}
	if got.Data["attempt"] != 2 {
		t.Errorf("expected attempt 2, got %v", got.Data["attempt"])
	}
}

func TestMemory_CrossRunIsolation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.Write(ctx, "run-a", "fetch_catalog", domain.ArtifactTypeCatalog,
		map[string]any{"owner": "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Write(ctx, "run-b", "fetch_catalog", domain.ArtifactTypeCatalog,
		map[string]any{"owner": "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.ReadLatest(ctx, "run-a", domain.ArtifactTypeCatalog)
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if got.Data["owner"] != "a" {
		t.Errorf("run-a should see only its own artifacts, got %v", got.Data["owner"])
	}

	all, err := s.ReadAll(ctx, "run-b")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 artifact for run-b, got %d", len(all))
	}
}

func TestMemory_ReadAll_InsertionOrder(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	steps := []string{"fetch_profile", "fetch_trends", "fetch_catalog"}
	types := []domain.ArtifactType{
		domain.ArtifactTypeProfile,
		domain.ArtifactTypeTrends,
		domain.ArtifactTypeCatalog,
	}

	for i, step := range steps {
		if _, err := s.Write(ctx, "run-1", step, types[i], map[string]any{}); err != nil {
			t.Fatalf("write %s: %v", step, err)
		}
	}

	all, err := s.ReadAll(ctx, "run-1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(all))
	}
	for i, step := range steps {
		if all[i].StepName != step {
			t.Errorf("position %d: expected %s, got %s", i, step, all[i].StepName)
		}
	}
}

func TestMemory_ConcurrentWrites(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runID := "run-a"
			if n%2 == 0 {
				runID = "run-b"
			}
			for j := 0; j < 20; j++ {
				if _, err := s.Write(ctx, runID, "fetch_catalog", domain.ArtifactTypeCatalog,
					map[string]any{"n": n}); err != nil {
					t.Errorf("write: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	a, err := s.ReadAll(ctx, "run-a")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	b, err := s.ReadAll(ctx, "run-b")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(a)+len(b) != 200 {
		t.Errorf("expected 200 artifacts total, got %d", len(a)+len(b))
	}
}
