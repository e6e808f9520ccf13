package store

import (
	"context"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Memory — in-memory реализация Store.
//
// Повторяет семантику Postgres-реализации (append-only, latest-wins
// по created_at с tie-break по id) и используется в тестах движка
// и агрегатора.
type Memory struct {
	mu        sync.RWMutex
	seq       int64
	artifacts []domain.Artifact
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() *Memory {
	return &Memory{}
}

// Write добавляет артефакт.
func (m *Memory) Write(ctx context.Context, runID, stepName string, artifactType domain.ArtifactType, data map[string]any) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	artifact := domain.Artifact{
		ID:        m.seq,
		RunID:     runID,
		StepName:  stepName,
		Type:      artifactType,
		Data:      data,
		CreatedAt: time.Now(),
	}
	m.artifacts = append(m.artifacts, artifact)

	return &artifact, nil
}

// ReadLatest возвращает последний артефакт по (run, type).
func (m *Memory) ReadLatest(ctx context.Context, runID string, artifactType domain.ArtifactType) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *domain.Artifact
	for i := range m.artifacts {
		a := &m.artifacts[i]
		if a.RunID != runID || a.Type != artifactType {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) ||
			(a.CreatedAt.Equal(latest.CreatedAt) && a.ID > latest.ID) {
			latest = a
		}
	}

	if latest == nil {
		return nil, ErrNotFound
	}

	result := *latest
	return &result, nil
}

// ReadAll возвращает все артефакты run в порядке записи.
func (m *Memory) ReadAll(ctx context.Context, runID string) ([]domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.Artifact
	for i := range m.artifacts {
		if m.artifacts[i].RunID == runID {
			result = append(result, m.artifacts[i])
		}
	}
	return result, nil
}
