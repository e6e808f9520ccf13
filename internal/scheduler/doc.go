// Package scheduler создаёт runs по cron-триггерам из YAML файла.
//
// Структура:
//   - triggers.go  — загрузка и валидация триггеров
//   - scheduler.go — цикл планировщика (Run, Tick, fire)
//
// Координация нескольких экземпляров строится на детерминированных
// идентификаторах run ("{trigger}-{due_unix}") и уникальности id
// в БД: дубликат создания тихо игнорируется.
package scheduler
