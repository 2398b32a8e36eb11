// Package domain содержит основные сущности Conveyor.
//
// Основные типы:
//   - AutomationStatus — статус обработки записи (state machine)
//   - TableDescriptor  — описание таблицы из каталога метаданных
//   - Action           — конфигурация автоматизации (статическая или из триггеров)
//   - WorkUnit         — единица работы поллера: (таблица, статус, опциональный шард)
//   - Record / Filter  — модель записей и запросов к хранилищу
//
// Domain не зависит от других пакетов проекта.
package domain
