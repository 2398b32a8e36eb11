package poller

import (
	"context"
	"log/slog"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

// Default pipeline sizes.
const (
	defaultBatchSize  = 100
	defaultBufferSize = 1000
)

// BatchFunc обрабатывает один батч записей.
type BatchFunc func(ctx context.Context, records []*domain.Record) error

// Pipeline — потоковая выборка записей единицы работы батчами.
//
// Продюсер (QueryStream хранилища) пишет записи в ограниченный канал,
// консьюмер собирает их в батчи и вызывает callback. Канал даёт
// backpressure: сколько бы записей ни ждало обработки, в памяти
// одновременно находится не больше bufferSize + batchSize записей.
type Pipeline struct {
	store      store.RecordStore
	batchSize  int
	bufferSize int
	logger     *slog.Logger
}

// PipelineConfig — конфигурация Pipeline.
type PipelineConfig struct {
	Store      store.RecordStore
	BatchSize  int // записей в одном батче (default: 100)
	BufferSize int // ёмкость канала продюсер→консьюмер (default: 1000)
	Logger     *slog.Logger
}

// NewPipeline создаёт Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		store:      cfg.Store,
		batchSize:  batchSize,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Run выбирает записи единицы работы и прогоняет их батчами через
// process. Первая ошибка process останавливает обработку (остаток
// потока дочитывается, чтобы не заблокировать продюсера) и
// возвращается вызывающему.
func (p *Pipeline) Run(ctx context.Context, unit domain.WorkUnit, process BatchFunc) error {
	filter := pendingFilter(unit)

	ch := make(chan *domain.Record, p.bufferSize)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.store.QueryStream(ctx, unit.Table, filter, ch)
		close(ch)
	}()

	batch := make([]*domain.Record, 0, p.batchSize)
	var procErr error

	for rec := range ch {
		if procErr != nil {
			continue // дочитываем поток
		}
		batch = append(batch, rec)
		if len(batch) >= p.batchSize {
			procErr = process(ctx, batch)
			batch = make([]*domain.Record, 0, p.batchSize)
		}
	}

	if queryErr := <-errCh; queryErr != nil && procErr == nil {
		procErr = queryErr
	}
	if procErr != nil {
		return procErr
	}

	if len(batch) > 0 {
		return process(ctx, batch)
	}
	return nil
}

// pendingFilter строит фильтр выборки единицы работы: статус,
// шард (если есть) и детерминированная сортировка.
func pendingFilter(unit domain.WorkUnit) *domain.Filter {
	f := domain.NewFilter().
		WithCriteria(unit.Table.Automation.StatusField, domain.OpEquals, string(unit.Status))
	if unit.IsSharded() {
		f.WithCriteria(unit.Shard.Field, domain.OpEquals, unit.Shard.Value)
	}
	f.OrderBys = unitOrder(unit)
	return f
}

// unitOrder возвращает сортировку выборки: по дате создания для
// insert-автоматизаций, по дате изменения для update-автоматизаций
// (если такое поле есть), иначе по первичному ключу. Приближает FIFO
// между тиками и делает порядок обработки детерминированным.
func unitOrder(unit domain.WorkUnit) []domain.OrderBy {
	behavior := domain.BehaviorCreateDate
	if event, _ := unit.Status.Event(); event == domain.EventPostUpdate {
		behavior = domain.BehaviorModifyDate
	}

	if field := unit.Table.FieldWithBehavior(behavior); field != "" {
		return []domain.OrderBy{
			{Field: field},
			{Field: unit.Table.PrimaryKeyField},
		}
	}
	return []domain.OrderBy{{Field: unit.Table.PrimaryKeyField}}
}
