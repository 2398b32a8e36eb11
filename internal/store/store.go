package store

import (
	"context"
	"errors"

	"github.com/shaiso/Conveyor/internal/domain"
)

// Общие ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedOp — фильтр использует оператор, который
	// реализация хранилища не поддерживает.
	ErrUnsupportedOp = errors.New("unsupported criteria operator")
)

// RecordStore — интерфейс хранилища записей.
//
// Все операции принимают описание таблицы из каталога: по нему
// реализация узнаёт первичный ключ и список полей.
type RecordStore interface {
	// Query возвращает записи, подходящие под фильтр, с учётом
	// его сортировок и лимита.
	Query(ctx context.Context, table *domain.TableDescriptor, filter *domain.Filter) ([]*domain.Record, error)

	// QueryStream выполняет тот же запрос, но отправляет записи
	// в канал по одной. Канал не закрывается — это делает вызывающий
	// после возврата. Блокируется, когда канал заполнен (backpressure).
	QueryStream(ctx context.Context, table *domain.TableDescriptor, filter *domain.Filter, out chan<- *domain.Record) error

	// Get возвращает запись по первичному ключу или ErrNotFound.
	Get(ctx context.Context, table *domain.TableDescriptor, primaryKey any) (*domain.Record, error)

	// Insert вставляет записи.
	Insert(ctx context.Context, table *domain.TableDescriptor, records []*domain.Record) error

	// UpdateStatus массово выставляет статус автоматизаций
	// записям с перечисленными первичными ключами.
	UpdateStatus(ctx context.Context, table *domain.TableDescriptor, primaryKeys []any, statusField string, status domain.AutomationStatus) error
}
