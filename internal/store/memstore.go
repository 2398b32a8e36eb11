package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

// MemStore — in-memory реализация RecordStore.
//
// Используется тестами и встраивающими приложениями без внешней БД.
// Потокобезопасен; Query возвращает копии записей, чтобы обработчики
// не могли менять хранимое состояние в обход UpdateStatus/Insert.
type MemStore struct {
	mu     sync.RWMutex
	tables map[string][]*domain.Record
}

// NewMemStore создаёт пустое хранилище.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string][]*domain.Record)}
}

// Seed добавляет записи напрямую, минуя Insert (для тестов).
func (s *MemStore) Seed(tableName string, records ...*domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tableName] = append(s.tables[tableName], records...)
}

// Query возвращает записи, подходящие под фильтр.
func (s *MemStore) Query(ctx context.Context, table *domain.TableDescriptor, filter *domain.Filter) ([]*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Record
	for _, rec := range s.tables[table.Name] {
		match, err := matchFilter(rec, filter)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, copyRecord(rec))
		}
	}

	if filter != nil {
		sortRecords(out, filter.OrderBys)
		if filter.Limit > 0 && len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

// QueryStream отправляет подходящие записи в канал по одной.
func (s *MemStore) QueryStream(ctx context.Context, table *domain.TableDescriptor, filter *domain.Filter, out chan<- *domain.Record) error {
	records, err := s.Query(ctx, table, filter)
	if err != nil {
		return err
	}
	for _, rec := range records {
		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Get возвращает запись по первичному ключу.
func (s *MemStore) Get(ctx context.Context, table *domain.TableDescriptor, primaryKey any) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.tables[table.Name] {
		if compareValues(rec.Value(table.PrimaryKeyField), primaryKey) == 0 {
			return copyRecord(rec), nil
		}
	}
	return nil, fmt.Errorf("%w: %s[%v]", ErrNotFound, table.Name, primaryKey)
}

// Insert добавляет записи в таблицу.
func (s *MemStore) Insert(ctx context.Context, table *domain.TableDescriptor, records []*domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.tables[table.Name] = append(s.tables[table.Name], copyRecord(rec))
	}
	return nil
}

// UpdateStatus выставляет статус записям с перечисленными ключами.
func (s *MemStore) UpdateStatus(ctx context.Context, table *domain.TableDescriptor, primaryKeys []any, statusField string, status domain.AutomationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(primaryKeys) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.tables[table.Name] {
		pk := rec.Value(table.PrimaryKeyField)
		for _, want := range primaryKeys {
			if compareValues(pk, want) == 0 {
				rec.SetValue(statusField, string(status))
				break
			}
		}
	}
	return nil
}

// copyRecord возвращает копию записи с собственной картой значений.
func copyRecord(rec *domain.Record) *domain.Record {
	out := domain.NewRecord(rec.TableName)
	for k, v := range rec.Values {
		out.Values[k] = v
	}
	return out
}

// matchFilter проверяет запись на соответствие дереву условий.
func matchFilter(rec *domain.Record, filter *domain.Filter) (bool, error) {
	if filter.IsEmpty() {
		return true, nil
	}

	or := filter.BoolOp() == domain.BooleanOr

	for _, c := range filter.Criteria {
		match, err := matchCriteria(rec, c)
		if err != nil {
			return false, err
		}
		if or && match {
			return true, nil
		}
		if !or && !match {
			return false, nil
		}
	}

	for _, sub := range filter.SubFilters {
		match, err := matchFilter(rec, sub)
		if err != nil {
			return false, err
		}
		if or && match {
			return true, nil
		}
		if !or && !match {
			return false, nil
		}
	}

	// AND: все условия прошли; OR: ни одно не сработало.
	return !or, nil
}

// matchCriteria проверяет одно условие.
func matchCriteria(rec *domain.Record, c domain.Criteria) (bool, error) {
	v := rec.Value(c.Field)

	switch c.Op {
	case domain.OpEquals:
		return len(c.Values) > 0 && compareValues(v, c.Values[0]) == 0, nil
	case domain.OpNotEquals:
		return len(c.Values) > 0 && compareValues(v, c.Values[0]) != 0, nil
	case domain.OpIn:
		for _, want := range c.Values {
			if compareValues(v, want) == 0 {
				return true, nil
			}
		}
		return false, nil
	case domain.OpLessThan:
		return len(c.Values) > 0 && v != nil && compareValues(v, c.Values[0]) < 0, nil
	case domain.OpGreaterThan:
		return len(c.Values) > 0 && v != nil && compareValues(v, c.Values[0]) > 0, nil
	case domain.OpIsBlank:
		return v == nil || v == "", nil
	case domain.OpIsNotBlank:
		return v != nil && v != "", nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOp, c.Op)
	}
}

// sortRecords сортирует записи по списку сортировок (стабильно).
func sortRecords(records []*domain.Record, orderBys []domain.OrderBy) {
	if len(orderBys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ob := range orderBys {
			cmp := compareValues(records[i].Value(ob.Field), records[j].Value(ob.Field))
			if cmp == 0 {
				continue
			}
			if ob.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues сравнивает два значения с нормализацией типов.
// nil сортируется раньше любых значений.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// toFloat приводит числовые типы к float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
