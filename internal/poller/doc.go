// Package poller реализует поллинг-планировщик автоматизаций.
//
// Структура:
//   - supervisor.go — жизненный цикл (Start/Stop/StopAsync, состояния)
//   - runner.go     — раннер одного тика: обработка единиц работы и батчей
//   - resolver.go   — разворачивание каталога в единицы работы (таблица,
//     статус, опциональный шард)
//   - selector.go   — выбор автоматизаций (статические + таблица триггеров)
//   - pipeline.go   — потоковая выборка записей батчами через ограниченный канал
//   - applier.go    — применение одной автоматизации к батчу
//   - sweep.go      — recovery sweep зависших RUNNING_* записей
//
// Поток управления одного тика:
//
//	Supervisor → Resolver → [для каждой единицы] Selector → Pipeline →
//	  [для каждого батча] PENDING→RUNNING → Applier×N → RUNNING→{OK,FAILED}
//
// Ошибки изолируются послойно: упавшая автоматизация не отменяет
// остальные автоматизации батча, упавший батч не отменяет другие
// единицы работы, упавшая единица работы не отменяет тик и расписание.
package poller
