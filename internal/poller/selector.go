package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Selector вычисляет упорядоченный список автоматизаций для единицы
// работы: статические из метаданных таблицы плюс динамические из
// таблицы триггеров.
type Selector struct {
	catalog domain.Catalog
	store   store.RecordStore
	logger  *slog.Logger
}

// NewSelector создаёт Selector.
func NewSelector(catalog domain.Catalog, st store.RecordStore, logger *slog.Logger) *Selector {
	return &Selector{catalog: catalog, store: st, logger: logger}
}

// ActionsFor возвращает автоматизации единицы работы, отсортированные
// по возрастанию приоритета (nil приоритет — последним; при равенстве
// статические раньше триггерных).
func (s *Selector) ActionsFor(ctx context.Context, unit domain.WorkUnit) ([]domain.Action, error) {
	event, ok := unit.Status.Event()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTriggerEvent, unit.Status)
	}

	var actions []domain.Action

	for _, a := range unit.Table.Automation.Actions {
		if a.TriggerEvent != event {
			continue
		}
		if unit.IsSharded() {
			// На шардированной единице работают только автоматизации,
			// привязанные к её шарду.
			if a.ShardID != nil && *a.ShardID == fmt.Sprint(unit.Shard.Value) {
				actions = append(actions, a)
			}
			continue
		}
		if a.ShardID == nil {
			actions = append(actions, a)
		}
	}

	actions = append(actions, s.triggerActions(ctx, unit, event)...)

	domain.SortActions(actions)
	return actions, nil
}

// triggerActions собирает автоматизации из таблицы триггеров.
// Строка с некорректной конфигурацией логируется и пропускается.
func (s *Selector) triggerActions(ctx context.Context, unit domain.WorkUnit, event domain.TriggerEvent) []domain.Action {
	trigTable, err := s.catalog.GetTable(domain.TriggerTableName)
	if err != nil {
		// Таблицы триггеров в каталоге нет — динамических автоматизаций нет.
		return nil
	}

	flagField := domain.TriggerFieldPostInsert
	if event == domain.EventPostUpdate {
		flagField = domain.TriggerFieldPostUpdate
	}

	filter := domain.NewFilter().
		WithCriteria(domain.TriggerFieldTableName, domain.OpEquals, unit.Table.Name).
		WithCriteria(flagField, domain.OpEquals, true)

	rows, err := s.store.Query(ctx, trigTable, filter)
	if err != nil {
		telemetry.WithTable(s.logger, unit.Table.Name).Warn("failed to query table triggers", "error", err)
		return nil
	}

	var actions []domain.Action
	for _, row := range rows {
		action, err := s.actionFromTrigger(ctx, row, trigTable, event)
		if err != nil {
			telemetry.WithTable(s.logger, unit.Table.Name).Warn("skipping malformed table trigger",
				"trigger_id", row.Value(trigTable.PrimaryKeyField),
				"error", err,
			)
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// actionFromTrigger синтезирует автоматизацию из строки триггера.
// Сохранённый фильтр резолвится по внешнему ключу на saved_views
// и парсится из его filter_json.
func (s *Selector) actionFromTrigger(ctx context.Context, row *domain.Record, trigTable *domain.TableDescriptor, event domain.TriggerEvent) (domain.Action, error) {
	scriptID := row.Value(domain.TriggerFieldScriptID)
	if scriptID == nil {
		return domain.Action{}, fmt.Errorf("trigger has no script id")
	}

	var filter *domain.Filter
	if filterID := row.Value(domain.TriggerFieldFilterID); filterID != nil {
		resolved, err := s.resolveSavedFilter(ctx, filterID)
		if err != nil {
			return domain.Action{}, err
		}
		filter = resolved
	}

	var priority *int
	if v, ok := toInt(row.Value(domain.TriggerFieldPriority)); ok {
		priority = &v
	}

	return domain.Action{
		Name:         fmt.Sprintf("table-trigger-%v", row.Value(trigTable.PrimaryKeyField)),
		TriggerEvent: event,
		Filter:       filter,
		Priority:     priority,
		CodeRef:      backend.CodeRefRunRecordScript,
		Values:       map[string]any{backend.ValueScriptID: scriptID},
	}, nil
}

// resolveSavedFilter читает saved view и парсит его фильтр.
func (s *Selector) resolveSavedFilter(ctx context.Context, filterID any) (*domain.Filter, error) {
	viewTable, err := s.catalog.GetTable(domain.SavedViewTableName)
	if err != nil {
		return nil, fmt.Errorf("saved view table: %w", err)
	}

	view, err := s.store.Get(ctx, viewTable, filterID)
	if err != nil {
		return nil, fmt.Errorf("get saved view %v: %w", filterID, err)
	}

	raw := view.ValueString(domain.SavedViewFieldFilterJSON)
	if raw == "" {
		return nil, nil
	}

	var filter domain.Filter
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, fmt.Errorf("parse saved filter %v: %w", filterID, err)
	}
	return &filter, nil
}

// toInt приводит числовое значение из хранилища к int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
