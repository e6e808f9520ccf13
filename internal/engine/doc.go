// Package engine выполняет шаги пайплайна по строго линейной цепочке.
//
// Каждый run выполняется последовательно на одной логической нити:
// шаги не перемежаются, артефакты ранних шагов видны поздним. Граф
// намеренно ограничен одним преемником на шаг плюс единственным
// bypass-ребром от входа к агрегации для development mode — ветвление
// с несколькими преемниками порождает неоднозначную семантику join'ов.
package engine
