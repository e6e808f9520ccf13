// Package telemetry содержит настройку structured logging (slog)
// и Prometheus-метрики пайплайна.
package telemetry
