// Package config реализует Config Normalizer — единственную границу
// нормализации конфигурации run.
//
// Конфигурация приходит либо типизированной структурой, либо
// нетипизированной map'ой (после границы сериализации: БД, очередь,
// HTTP). Normalize приводит обе формы к одному каноническому
// domain.PipelineConfig, так что ни один компонент ниже по потоку
// не ветвится по форме входа.
//
// Здесь же — загрузка статических спецификаций пайплайна из YAML.
package config
