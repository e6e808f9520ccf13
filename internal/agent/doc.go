// Package agent реализует HTTP-клиент вызова worker-агентов пайплайна.
//
// Клиент семантически нейтрален: он не знает, что именно возвращает
// агент, и отдаёт тело ответа как map. Ошибки классифицируются на
// временные (транспортные, таймауты, 5xx) и постоянные (4xx);
// временные повторяются через общий retry-примитив.
package agent
