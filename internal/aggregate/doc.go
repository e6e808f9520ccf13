// Package aggregate синтезирует финальную рекомендацию из артефактов
// одного run по детерминированной политике приоритетов.
//
// Агрегатор терпим к неполным данным: отсутствующий артефакт любого
// типа заменяется пустым набором сигналов, а при полном отсутствии
// артефактов возвращается синтезированный placeholder-результат.
package aggregate
