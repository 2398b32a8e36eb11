package domain

import (
	"errors"
	"fmt"
)

// ErrTableNotFound — таблица отсутствует в каталоге метаданных.
var ErrTableNotFound = errors.New("table not found")

// FieldType — тип поля таблицы.
type FieldType string

// Типы полей.
const (
	FieldString   FieldType = "STRING"
	FieldInteger  FieldType = "INTEGER"
	FieldDecimal  FieldType = "DECIMAL"
	FieldBoolean  FieldType = "BOOLEAN"
	FieldDateTime FieldType = "DATETIME"
)

// FieldBehavior — динамическое поведение поля.
//
// По CREATE_DATE/MODIFY_DATE поллер находит поля для детерминированной
// сортировки выборки (§ ordering) и для recovery sweep.
type FieldBehavior string

// Поведения полей.
const (
	BehaviorNone       FieldBehavior = ""
	BehaviorCreateDate FieldBehavior = "CREATE_DATE"
	BehaviorModifyDate FieldBehavior = "MODIFY_DATE"
)

// Field — описание поля таблицы.
type Field struct {
	Name     string        `json:"name"`
	Type     FieldType     `json:"type"`
	Behavior FieldBehavior `json:"behavior,omitempty"`
}

// AutomationConfig — конфигурация автоматизаций таблицы.
type AutomationConfig struct {
	// ProviderName — имя провайдера, отвечающего за таблицу.
	// Поллер обрабатывает только таблицы со своим именем провайдера.
	ProviderName string `json:"providerName"`

	// StatusField — поле записи, хранящее AutomationStatus.
	StatusField string `json:"statusField"`

	// ShardByField — поле записи со значением шарда.
	// Пустая строка — таблица не шардирована.
	ShardByField string `json:"shardByField,omitempty"`

	// ShardSourceTable — таблица-источник списка шардов.
	ShardSourceTable string `json:"shardSourceTable,omitempty"`

	// ShardIDField — поле таблицы-источника с идентификатором шарда.
	ShardIDField string `json:"shardIdField,omitempty"`

	// ShardLabelField — поле таблицы-источника с человекочитаемой меткой шарда.
	ShardLabelField string `json:"shardLabelField,omitempty"`

	// Actions — статически объявленные автоматизации.
	Actions []Action `json:"actions,omitempty"`
}

// TableDescriptor — описание таблицы из каталога метаданных.
type TableDescriptor struct {
	Name            string            `json:"name"`
	PrimaryKeyField string            `json:"primaryKeyField"`
	Fields          []Field           `json:"fields"`
	Automation      *AutomationConfig `json:"automation,omitempty"`
}

// Field возвращает описание поля по имени.
func (t *TableDescriptor) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldWithBehavior возвращает имя первого поля с заданным поведением
// (пустая строка, если такого поля нет).
func (t *TableDescriptor) FieldWithBehavior(behavior FieldBehavior) string {
	for _, f := range t.Fields {
		if f.Behavior == behavior {
			return f.Name
		}
	}
	return ""
}

// Validate проверяет целостность описания таблицы.
func (t *TableDescriptor) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	if t.PrimaryKeyField == "" {
		return fmt.Errorf("table %s has no primary key field", t.Name)
	}
	if _, ok := t.Field(t.PrimaryKeyField); !ok {
		return fmt.Errorf("table %s: primary key field %s not in field list", t.Name, t.PrimaryKeyField)
	}
	if a := t.Automation; a != nil {
		if a.StatusField == "" {
			return fmt.Errorf("table %s: automation config has no status field", t.Name)
		}
		if _, ok := t.Field(a.StatusField); !ok {
			return fmt.Errorf("table %s: status field %s not in field list", t.Name, a.StatusField)
		}
		if a.ShardByField != "" && a.ShardSourceTable == "" {
			return fmt.Errorf("table %s: shardByField set without shardSourceTable", t.Name)
		}
	}
	return nil
}

// Catalog — read-only каталог метаданных.
//
// Каталог может меняться между тиками поллера; раннер читает его
// один раз при создании, поэтому изменения вступают в силу со
// следующего тика.
type Catalog interface {
	// GetTable возвращает описание таблицы или ErrTableNotFound.
	GetTable(name string) (*TableDescriptor, error)

	// Tables возвращает все таблицы каталога.
	Tables() []*TableDescriptor
}

// Имена служебных таблиц, которые поллер ищет в каталоге.
const (
	// TriggerTableName — таблица динамических триггеров автоматизаций.
	// Поля: table_name, post_insert, post_update, filter_id, script_id, priority.
	TriggerTableName = "table_triggers"

	// SavedViewTableName — таблица сохранённых представлений.
	// Поле filter_json хранит JSON-сериализованный Filter.
	SavedViewTableName = "saved_views"
)

// Поля служебных таблиц.
const (
	TriggerFieldTableName  = "table_name"
	TriggerFieldPostInsert = "post_insert"
	TriggerFieldPostUpdate = "post_update"
	TriggerFieldFilterID   = "filter_id"
	TriggerFieldScriptID   = "script_id"
	TriggerFieldPriority   = "priority"

	SavedViewFieldFilterJSON = "filter_json"
)

// StaticCatalog — каталог на основе заранее построенного списка таблиц.
type StaticCatalog struct {
	tables map[string]*TableDescriptor
	order  []string
}

// NewStaticCatalog создаёт каталог из списка описаний таблиц.
func NewStaticCatalog(tables ...*TableDescriptor) *StaticCatalog {
	c := &StaticCatalog{tables: make(map[string]*TableDescriptor, len(tables))}
	for _, t := range tables {
		if _, exists := c.tables[t.Name]; !exists {
			c.order = append(c.order, t.Name)
		}
		c.tables[t.Name] = t
	}
	return c
}

// GetTable возвращает описание таблицы или ErrTableNotFound.
func (c *StaticCatalog) GetTable(name string) (*TableDescriptor, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

// Tables возвращает все таблицы в порядке регистрации.
func (c *StaticCatalog) Tables() []*TableDescriptor {
	out := make([]*TableDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tables[name])
	}
	return out
}
