// Package gate реализует Readiness Gate — ограниченное по числу
// попыток ожидание готовности внешних зависимостей (health-endpoint
// реестра агентов и TCP-порт БД) перед приёмом запросов.
//
// Бюджет попыток конечный: вечно лежащая зависимость приводит к
// *TimeoutError и отказу старта, а не к бесконечному ожиданию.
package gate
