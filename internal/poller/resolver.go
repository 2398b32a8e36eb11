package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Resolver разворачивает каталог метаданных в список единиц работы
// для заданного провайдера.
type Resolver struct {
	catalog domain.Catalog
	store   store.RecordStore
	logger  *slog.Logger
}

// NewResolver создаёт Resolver.
func NewResolver(catalog domain.Catalog, st store.RecordStore, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: catalog, store: st, logger: logger}
}

// Resolve возвращает единицы работы провайдера: по паре
// (insert-статус, update-статус) на таблицу, умноженной на шарды
// для шардированных таблиц.
//
// Ошибка резолва шардов одной таблицы логируется и не мешает
// резолву остальных таблиц.
func (r *Resolver) Resolve(ctx context.Context, providerName string) []domain.WorkUnit {
	var units []domain.WorkUnit

	for _, table := range r.catalog.Tables() {
		auto := table.Automation
		if auto == nil || auto.ProviderName != providerName {
			continue
		}

		if auto.ShardByField == "" {
			for _, status := range domain.PendingStatuses {
				units = append(units, domain.WorkUnit{Table: table, Status: status})
			}
			continue
		}

		shards, err := r.resolveShards(ctx, auto)
		if err != nil {
			telemetry.WithTable(r.logger, table.Name).Error("failed to resolve shards, skipping table",
				"shard_source", auto.ShardSourceTable,
				"error", err,
			)
			continue
		}

		for _, shard := range shards {
			for _, status := range domain.PendingStatuses {
				units = append(units, domain.WorkUnit{Table: table, Status: status, Shard: &shard})
			}
		}
	}

	return units
}

// resolveShards запрашивает таблицу-источник шардов.
func (r *Resolver) resolveShards(ctx context.Context, auto *domain.AutomationConfig) ([]domain.Shard, error) {
	src, err := r.catalog.GetTable(auto.ShardSourceTable)
	if err != nil {
		return nil, fmt.Errorf("shard source table: %w", err)
	}

	filter := domain.NewFilter().WithOrderBy(auto.ShardIDField)
	records, err := r.store.Query(ctx, src, filter)
	if err != nil {
		return nil, fmt.Errorf("query shard source: %w", err)
	}

	shards := make([]domain.Shard, 0, len(records))
	for _, rec := range records {
		shards = append(shards, domain.Shard{
			Field: auto.ShardByField,
			Value: rec.Value(auto.ShardIDField),
			Label: rec.ValueString(auto.ShardLabelField),
		})
	}
	return shards, nil
}
