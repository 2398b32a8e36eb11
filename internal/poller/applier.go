package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Applier применяет одну автоматизацию к батчу записей.
type Applier struct {
	store     store.RecordStore
	registry  *backend.Registry
	processes backend.ProcessRunner
	logger    *slog.Logger
}

// ApplierConfig — конфигурация Applier.
type ApplierConfig struct {
	Store     store.RecordStore
	Registry  *backend.Registry
	Processes backend.ProcessRunner // опционально
	Logger    *slog.Logger
}

// NewApplier создаёт Applier.
func NewApplier(cfg ApplierConfig) *Applier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		store:     cfg.Store,
		registry:  cfg.Registry,
		processes: cfg.Processes,
		logger:    logger,
	}
}

// Apply применяет автоматизацию к записям батча и возвращает ошибку,
// если автоматизация не удалась. Ошибка уже залогирована с контекстом
// таблицы и автоматизации; вызывающему остаётся учесть её во флаге
// неуспеха батча.
func (a *Applier) Apply(ctx context.Context, unit domain.WorkUnit, action domain.Action, batch []*domain.Record) error {
	err := a.apply(ctx, unit, action, batch)
	if err != nil {
		telemetry.WithAction(telemetry.WithTable(a.logger, unit.Table.Name), action.Name).
			Error("automation action failed", "error", err)
	}
	return err
}

func (a *Applier) apply(ctx context.Context, unit domain.WorkUnit, action domain.Action, batch []*domain.Record) (err error) {
	// Паника обработчика изолируется так же, как его ошибка.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in action %s: %v", action.Name, r)
		}
	}()

	matched, err := a.matchedRecords(ctx, unit, action, batch)
	if err != nil {
		return fmt.Errorf("match records: %w", err)
	}
	if len(matched) == 0 {
		return nil
	}

	if action.ProcessName != "" {
		if a.processes == nil {
			return ErrNoProcessRunner
		}
		input := backend.ProcessInput{
			TableName:             unit.Table.Name,
			Filter:                primaryKeyFilter(unit.Table, matched),
			Values:                action.Values,
			SuppressFrontendSteps: true,
		}
		if err := a.processes.Run(ctx, action.ProcessName, input); err != nil {
			return fmt.Errorf("process %s: %w", action.ProcessName, err)
		}
		return nil
	}

	if a.registry == nil {
		return ErrNoRegistry
	}
	handler, err := a.registry.Get(action.CodeRef)
	if err != nil {
		return err
	}
	return handler.Run(ctx, &backend.Invocation{
		TableName: unit.Table.Name,
		Records:   matched,
		Action:    action,
	})
}

// matchedRecords повторно запрашивает записи батча из хранилища.
//
// Значениям в памяти не доверяем: между выборкой и применением запись
// могла измениться, а семантика сравнения фильтра в хранилище (например,
// чувствительность к регистру) может отличаться от сравнения в процессе.
// Запрос: pk IN (ключи батча) AND фильтр автоматизации; сортировки
// автоматизации наследуются, в конец всегда добавляется сортировка
// по первичному ключу для детерминизма.
func (a *Applier) matchedRecords(ctx context.Context, unit domain.WorkUnit, action domain.Action, batch []*domain.Record) ([]*domain.Record, error) {
	pk := unit.Table.PrimaryKeyField

	filter := domain.NewFilter().
		WithCriteria(pk, domain.OpIn, PrimaryKeys(unit.Table, batch)...).
		WithSubFilter(action.Filter)
	filter.OrderBys = append(append([]domain.OrderBy{}, action.OrderBys...), domain.OrderBy{Field: pk})

	return a.store.Query(ctx, unit.Table, filter)
}

// PrimaryKeys возвращает значения первичных ключей записей.
func PrimaryKeys(table *domain.TableDescriptor, records []*domain.Record) []any {
	keys := make([]any, len(records))
	for i, rec := range records {
		keys[i] = rec.Value(table.PrimaryKeyField)
	}
	return keys
}

// primaryKeyFilter строит фильтр pk IN (ключи записей).
func primaryKeyFilter(table *domain.TableDescriptor, records []*domain.Record) *domain.Filter {
	return domain.NewFilter().
		WithCriteria(table.PrimaryKeyField, domain.OpIn, PrimaryKeys(table, records)...)
}
