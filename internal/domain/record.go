package domain

import "fmt"

// Record — одна запись таблицы: имя таблицы и значения полей.
//
// Значения типизируются хранилищем (string, int64, float64, bool,
// time.Time); поллер их не интерпретирует, кроме поля статуса
// и поля первичного ключа.
type Record struct {
	TableName string
	Values    map[string]any
}

// NewRecord создаёт пустую запись для таблицы.
func NewRecord(tableName string) *Record {
	return &Record{
		TableName: tableName,
		Values:    make(map[string]any),
	}
}

// Value возвращает значение поля (nil, если поле не заполнено).
func (r *Record) Value(field string) any {
	return r.Values[field]
}

// SetValue устанавливает значение поля и возвращает запись (для чейнинга).
func (r *Record) SetValue(field string, value any) *Record {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	r.Values[field] = value
	return r
}

// ValueString возвращает строковое представление значения поля.
func (r *Record) ValueString(field string) string {
	v, ok := r.Values[field]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// CriteriaOp — оператор сравнения в критерии фильтра.
type CriteriaOp string

// Операторы критериев.
const (
	OpEquals      CriteriaOp = "EQUALS"
	OpNotEquals   CriteriaOp = "NOT_EQUALS"
	OpIn          CriteriaOp = "IN"
	OpLessThan    CriteriaOp = "LESS_THAN"
	OpGreaterThan CriteriaOp = "GREATER_THAN"
	OpIsBlank     CriteriaOp = "IS_BLANK"
	OpIsNotBlank  CriteriaOp = "IS_NOT_BLANK"
)

// Criteria — одно условие фильтра: поле, оператор, значения.
type Criteria struct {
	Field  string     `json:"field"`
	Op     CriteriaOp `json:"op"`
	Values []any      `json:"values,omitempty"`
}

// BooleanOp — способ соединения критериев и подфильтров.
type BooleanOp string

// Булевы операторы фильтра.
const (
	BooleanAnd BooleanOp = "AND"
	BooleanOr  BooleanOp = "OR"
)

// OrderBy — сортировка результата запроса по одному полю.
type OrderBy struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Filter — дерево условий запроса к хранилищу.
//
// Критерии и подфильтры соединяются оператором Op (по умолчанию AND).
// Limit <= 0 означает «без ограничения».
type Filter struct {
	Op         BooleanOp  `json:"op,omitempty"`
	Criteria   []Criteria `json:"criteria,omitempty"`
	SubFilters []*Filter  `json:"subFilters,omitempty"`
	OrderBys   []OrderBy  `json:"orderBys,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// NewFilter создаёт пустой AND-фильтр.
func NewFilter() *Filter {
	return &Filter{Op: BooleanAnd}
}

// WithCriteria добавляет условие и возвращает фильтр.
func (f *Filter) WithCriteria(field string, op CriteriaOp, values ...any) *Filter {
	f.Criteria = append(f.Criteria, Criteria{Field: field, Op: op, Values: values})
	return f
}

// WithSubFilter добавляет вложенный фильтр.
func (f *Filter) WithSubFilter(sub *Filter) *Filter {
	if sub != nil {
		f.SubFilters = append(f.SubFilters, sub)
	}
	return f
}

// WithOrderBy добавляет сортировку по возрастанию.
func (f *Filter) WithOrderBy(field string) *Filter {
	f.OrderBys = append(f.OrderBys, OrderBy{Field: field})
	return f
}

// BoolOp возвращает оператор соединения с учётом значения по умолчанию.
func (f *Filter) BoolOp() BooleanOp {
	if f.Op == BooleanOr {
		return BooleanOr
	}
	return BooleanAnd
}

// IsEmpty возвращает true, если фильтр не содержит условий.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Criteria) == 0 && len(f.SubFilters) == 0)
}
