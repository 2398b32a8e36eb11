package domain

import "fmt"

// Shard — значение шарда, выделяющее часть таблицы в отдельную
// единицу работы.
type Shard struct {
	// Field — поле таблицы, по которому шардируются записи.
	Field string

	// Value — значение шарда.
	Value any

	// Label — человекочитаемая метка шарда (для логов).
	Label string
}

// WorkUnit — единица работы поллера: (таблица, статус, опциональный шард).
//
// Shard == nil означает нешардированную единицу. Создаётся заново на
// каждом тике резолвером и живёт один тик; идентичность — сам кортеж.
type WorkUnit struct {
	Table  *TableDescriptor
	Status AutomationStatus
	Shard  *Shard
}

// IsSharded возвращает true для шардированной единицы работы.
func (u WorkUnit) IsSharded() bool {
	return u.Shard != nil
}

// String возвращает представление для логов.
func (u WorkUnit) String() string {
	if u.Shard == nil {
		return fmt.Sprintf("%s/%s", u.Table.Name, u.Status)
	}
	return fmt.Sprintf("%s/%s[%s=%v]", u.Table.Name, u.Status, u.Shard.Field, u.Shard.Value)
}
