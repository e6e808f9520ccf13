// Package orchestrator управляет выполнением runs.
//
// Orchestrator отвечает за:
//   - Получение новых runs из очереди RabbitMQ (event-driven)
//   - Периодическую проверку pending runs в БД (polling fallback)
//   - Нормализацию конфигурации run перед первым шагом
//   - Выполнение пайплайна через engine
//   - Финализацию run и публикацию события run.completed
//
// Каждый run выполняется в собственной горутине; шаги внутри run
// строго последовательны.
package orchestrator
