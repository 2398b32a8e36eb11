package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Runner — раннер одного тика.
//
// Единицы работы резолвятся при создании раннера: тик работает
// с тем каталогом, который видел в момент старта, и изменения
// каталога вступают в силу только со следующего тика.
type Runner struct {
	store    store.RecordStore
	selector *Selector
	pipeline *Pipeline
	applier  *Applier
	events   *mq.Publisher
	units    []domain.WorkUnit
	logger   *slog.Logger
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	Catalog   domain.Catalog
	Store     store.RecordStore
	Registry  *backend.Registry
	Processes backend.ProcessRunner // опционально
	Events    *mq.Publisher         // опционально
	Provider  string

	BatchSize  int
	BufferSize int

	Logger *slog.Logger
}

// NewRunner создаёт раннер и резолвит его единицы работы.
func NewRunner(ctx context.Context, cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := NewResolver(cfg.Catalog, cfg.Store, logger)

	return &Runner{
		store:    cfg.Store,
		selector: NewSelector(cfg.Catalog, cfg.Store, logger),
		pipeline: NewPipeline(PipelineConfig{
			Store:      cfg.Store,
			BatchSize:  cfg.BatchSize,
			BufferSize: cfg.BufferSize,
			Logger:     logger,
		}),
		applier: NewApplier(ApplierConfig{
			Store:     cfg.Store,
			Registry:  cfg.Registry,
			Processes: cfg.Processes,
			Logger:    logger,
		}),
		events: cfg.Events,
		units:  resolver.Resolve(ctx, cfg.Provider),
		logger: logger,
	}
}

// Units возвращает единицы работы тика.
func (r *Runner) Units() []domain.WorkUnit {
	return r.units
}

// Run обрабатывает единицы работы последовательно.
// Ошибка одной единицы логируется и не прерывает обработку остальных.
func (r *Runner) Run(ctx context.Context) {
	for _, unit := range r.units {
		if err := r.processUnit(ctx, unit); err != nil {
			telemetry.WorkUnitErrors.WithLabelValues(unit.Table.Name).Inc()
			r.logger.Error("work unit processing failed",
				"unit", unit.String(),
				"status", unit.Status,
				"error", err,
			)
		}
	}
}

// processUnit обрабатывает одну единицу работы.
// Если автоматизаций нет, выборка не выполняется вовсе.
func (r *Runner) processUnit(ctx context.Context, unit domain.WorkUnit) error {
	actions, err := r.selector.ActionsFor(ctx, unit)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		r.logger.Debug("no actions for work unit, skipping query", "unit", unit.String())
		return nil
	}

	return r.pipeline.Run(ctx, unit, func(ctx context.Context, batch []*domain.Record) error {
		return r.processBatch(ctx, unit, actions, batch)
	})
}

// processBatch прогоняет один батч через state machine статусов:
//
//  1. PENDING_* → RUNNING_* (фиксируется до запуска автоматизаций)
//  2. автоматизации по возрастанию приоритета, с учётом неуспехов
//  3. RUNNING_* → OK, либо RUNNING_* → FAILED_*, если хоть одна упала
//
// Неуспех помечается на весь батч, не по отдельным записям.
func (r *Runner) processBatch(ctx context.Context, unit domain.WorkUnit, actions []domain.Action, batch []*domain.Record) error {
	table := unit.Table
	statusField := table.Automation.StatusField

	running, ok := unit.Status.Running()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTriggerEvent, unit.Status)
	}

	keys := PrimaryKeys(table, batch)
	if err := r.store.UpdateStatus(ctx, table, keys, statusField, running); err != nil {
		return fmt.Errorf("mark batch running: %w", err)
	}

	var anyFailed bool
	for _, action := range actions {
		if err := r.applier.Apply(ctx, unit, action, batch); err != nil {
			anyFailed = true
			telemetry.ActionFailures.WithLabelValues(table.Name, action.Name).Inc()
			r.publishActionFailed(ctx, table.Name, action.Name, err)
		}
	}

	final := domain.StatusOK
	if anyFailed {
		final, _ = running.Failed()
	}

	if err := r.store.UpdateStatus(ctx, table, keys, statusField, final); err != nil {
		// Записи могут остаться в RUNNING_*; этот пробел закрывает
		// recovery sweep (см. sweep.go).
		telemetry.WithTable(r.logger, table.Name).Error("final status update failed",
			"final_status", final,
			"error", err,
		)
		return fmt.Errorf("final status update: %w", err)
	}

	result := "ok"
	if anyFailed {
		result = "failed"
	}
	telemetry.RecordsProcessed.WithLabelValues(table.Name, result).Add(float64(len(batch)))

	r.publishBatchProcessed(ctx, unit, final, len(batch))
	return nil
}

// publishActionFailed публикует событие об упавшей автоматизации
// (если publisher сконфигурирован).
func (r *Runner) publishActionFailed(ctx context.Context, tableName, actionName string, actionErr error) {
	if r.events == nil {
		return
	}
	err := r.events.PublishActionFailed(ctx, mq.ActionFailedPayload{
		TableName:  tableName,
		ActionName: actionName,
		Error:      actionErr.Error(),
	})
	if err != nil {
		r.logger.Warn("failed to publish action.failed", "error", err)
	}
}

// publishBatchProcessed публикует итог обработки батча
// (если publisher сконфигурирован).
func (r *Runner) publishBatchProcessed(ctx context.Context, unit domain.WorkUnit, final domain.AutomationStatus, count int) {
	if r.events == nil {
		return
	}

	payload := mq.BatchProcessedPayload{
		TableName:   unit.Table.Name,
		Status:      unit.Status,
		FinalStatus: final,
		RecordCount: count,
	}
	if unit.IsSharded() {
		payload.ShardValue = fmt.Sprint(unit.Shard.Value)
	}

	if err := r.events.PublishBatchProcessed(ctx, payload); err != nil {
		r.logger.Warn("failed to publish batch.processed", "error", err)
	}
}
