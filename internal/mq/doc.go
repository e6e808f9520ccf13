// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - run.requested — новый run ожидает выполнения
//   - run.completed — run завершён (в любом терминальном статусе)
//
// Exchanges:
//   - conveyor.runs — события runs
//   - conveyor.dlq  — dead letter queue
package mq
