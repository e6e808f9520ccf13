// Package store определяет интерфейс Artifact Store — append-only
// хранилища результатов шагов — и его in-memory реализацию.
// Production-реализация на Postgres находится в internal/repo.
package store
