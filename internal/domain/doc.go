// Package domain содержит основные типы системы: Run, Artifact,
// PipelineConfig, StepDef и статусы.
//
// Типы domain не зависят от инфраструктуры (БД, MQ, HTTP) —
// это общий словарь для всех остальных пакетов.
package domain
