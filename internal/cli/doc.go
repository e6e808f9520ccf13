// Package cli реализует инструмент командной строки Conveyor.
//
// CLI — клиентская утилита для взаимодействия с Conveyor API.
// Работает через HTTP и не импортирует внутренние пакеты сервера.
//
// Команды организованы по ресурсам:
//   - run: list, start, show, artifacts, result
//
// Данные выводятся в stdout (таблица или JSON с флагом --json),
// сообщения — в stderr. Это позволяет использовать pipe:
// conveyor run result run-001 | jq .items
package cli
