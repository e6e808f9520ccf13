package store

import (
	"context"
	"errors"

	"github.com/shaiso/Conveyor/internal/domain"
)

// ErrNotFound — артефакт с запрошенным ключом отсутствует.
var ErrNotFound = errors.New("artifact not found")

// Store — хранилище артефактов.
//
// Записи append-only: повторный Write с тем же ключом (run, step, type)
// добавляет новую строку, а не перезаписывает старую. ReadLatest
// детерминированно разрешает дубликаты: последняя по created_at,
// при равенстве — по id (порядку вставки).
//
// Единственная граница корректности — составной ключ с run_id:
// конкурентные записи разных runs не пересекаются, межзапусковых
// блокировок нет.
type Store interface {
	// Write добавляет артефакт и возвращает записанную строку.
	Write(ctx context.Context, runID, stepName string, artifactType domain.ArtifactType, data map[string]any) (*domain.Artifact, error)

	// ReadLatest возвращает последний артефакт по (run, type)
	// или ErrNotFound.
	ReadLatest(ctx context.Context, runID string, artifactType domain.ArtifactType) (*domain.Artifact, error)

	// ReadAll возвращает все артефакты run в порядке записи.
	ReadAll(ctx context.Context, runID string) ([]domain.Artifact, error)
}
