package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// sweepParser — парсер cron-выражений расписания sweep.
var sweepParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// defaultSweepOlderThan — порог возраста зависшей записи по умолчанию.
const defaultSweepOlderThan = time.Hour

// SweepConfig — настройка recovery sweep.
//
// Если финальная запись статуса упала после выполнения автоматизаций,
// записи остаются в RUNNING_* навсегда — сами они не восстанавливаются.
// Sweep возвращает такие записи (старше OlderThan по дате изменения)
// обратно в PENDING_*, после чего их подберёт обычный поллинг.
// Повторный запуск автоматизаций при этом возможен; включение sweep —
// явное решение оператора.
type SweepConfig struct {
	// Schedule — cron-выражение (пять полей). Обязательно.
	Schedule string

	// OlderThan — минимальный возраст RUNNING_* записи для сброса
	// (default: 1h).
	OlderThan time.Duration
}

// ValidateSweepSchedule проверяет cron-выражение расписания sweep.
func ValidateSweepSchedule(schedule string) error {
	if _, err := sweepParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return nil
}

// sweeper выполняет recovery sweep по расписанию.
type sweeper struct {
	catalog   domain.Catalog
	store     store.RecordStore
	logger    *slog.Logger
	schedule  cron.Schedule
	olderThan time.Duration
	next      time.Time
}

// newSweeper создаёт sweeper. cfg == nil означает «sweep выключен»
// (возвращается nil без ошибки).
func newSweeper(cfg *SweepConfig, catalog domain.Catalog, st store.RecordStore, logger *slog.Logger) (*sweeper, error) {
	if cfg == nil {
		return nil, nil
	}

	schedule, err := sweepParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}

	olderThan := cfg.OlderThan
	if olderThan <= 0 {
		olderThan = defaultSweepOlderThan
	}

	return &sweeper{
		catalog:   catalog,
		store:     st,
		logger:    logger,
		schedule:  schedule,
		olderThan: olderThan,
		// Первый sweep — сразу после старта супервизора.
		next: time.Now(),
	}, nil
}

// MaybeSweep выполняет sweep, если пришло время по расписанию.
func (w *sweeper) MaybeSweep(ctx context.Context, provider string) {
	now := time.Now()
	if now.Before(w.next) {
		return
	}
	w.next = w.schedule.Next(now)
	w.Sweep(ctx, provider)
}

// Sweep сбрасывает RUNNING_* записи старше порога обратно в PENDING_*
// по всем таблицам провайдера. Ошибки по одной таблице логируются
// и не мешают остальным.
func (w *sweeper) Sweep(ctx context.Context, provider string) {
	cutoff := time.Now().Add(-w.olderThan)

	for _, table := range w.catalog.Tables() {
		auto := table.Automation
		if auto == nil || auto.ProviderName != provider {
			continue
		}

		modifyField := table.FieldWithBehavior(domain.BehaviorModifyDate)
		if modifyField == "" {
			// Без даты изменения возраст записи не оценить.
			continue
		}

		for _, running := range []domain.AutomationStatus{domain.StatusRunningInsert, domain.StatusRunningUpdate} {
			pending, _ := running.Pending()

			filter := domain.NewFilter().
				WithCriteria(auto.StatusField, domain.OpEquals, string(running)).
				WithCriteria(modifyField, domain.OpLessThan, cutoff)

			records, err := w.store.Query(ctx, table, filter)
			if err != nil {
				telemetry.WithTable(w.logger, table.Name).Warn("sweep query failed", "error", err)
				continue
			}
			if len(records) == 0 {
				continue
			}

			keys := PrimaryKeys(table, records)
			if err := w.store.UpdateStatus(ctx, table, keys, auto.StatusField, pending); err != nil {
				telemetry.WithTable(w.logger, table.Name).Warn("sweep status reset failed", "error", err)
				continue
			}

			telemetry.SweptRecords.WithLabelValues(table.Name).Add(float64(len(records)))
			telemetry.WithTable(w.logger, table.Name).Info("reset stale running records",
				"count", len(records),
				"from", running,
				"to", pending,
			)
		}
	}
}
