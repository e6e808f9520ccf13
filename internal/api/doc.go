// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go     — Handler с DI (репозитории, publisher, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects (request/response)
//   - run_handler.go — обработчики для /runs
//
// API предоставляет REST endpoints для создания runs и чтения
// их артефактов и финальных результатов.
package api
