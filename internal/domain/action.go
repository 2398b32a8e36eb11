package domain

import "sort"

// TriggerEvent — событие, сделавшее запись кандидатом на автоматизацию.
type TriggerEvent string

// События-триггеры.
const (
	EventPostInsert TriggerEvent = "POST_INSERT"
	EventPostUpdate TriggerEvent = "POST_UPDATE"
)

// Action — конфигурация одной автоматизации.
//
// Источники два: статическое объявление в AutomationConfig таблицы
// и строка таблицы триггеров (см. TriggerTableName), из которой
// селектор синтезирует Action на лету.
//
// Ровно одно из CodeRef/ProcessName должно быть задано: CodeRef
// указывает на обработчик в реестре, ProcessName — на именованный
// процесс.
type Action struct {
	// Name — имя автоматизации (для логов и метрик).
	Name string `json:"name"`

	// TriggerEvent — на какое событие реагирует автоматизация.
	TriggerEvent TriggerEvent `json:"triggerEvent"`

	// Filter — дополнительный фильтр: автоматизация применяется
	// только к записям, подходящим под него.
	Filter *Filter `json:"filter,omitempty"`

	// Priority — порядок выполнения по возрастанию.
	// nil сортируется последним (как «бесконечность»).
	Priority *int `json:"priority,omitempty"`

	// CodeRef — имя обработчика в реестре backend.Registry.
	CodeRef string `json:"codeRef,omitempty"`

	// ProcessName — имя процесса для backend.ProcessRunner.
	ProcessName string `json:"processName,omitempty"`

	// ShardID — значение шарда, к которому привязана автоматизация.
	// nil — автоматизация без шардовой привязки.
	ShardID *string `json:"shardId,omitempty"`

	// IncludeRecordAssociations — загружать ли ассоциации записей
	// при повторном запросе перед выполнением.
	IncludeRecordAssociations bool `json:"includeRecordAssociations,omitempty"`

	// OrderBys — сортировки, наследуемые повторным запросом
	// (к ним всегда добавляется сортировка по первичному ключу).
	OrderBys []OrderBy `json:"orderBys,omitempty"`

	// Values — произвольные параметры для обработчика
	// (например, script_id для триггерных автоматизаций).
	Values map[string]any `json:"values,omitempty"`
}

// PriorityValue возвращает приоритет; nil трактуется как максимум.
func (a *Action) PriorityValue() int {
	if a.Priority == nil {
		return int(^uint(0) >> 1) // max int
	}
	return *a.Priority
}

// SortActions сортирует автоматизации по возрастанию приоритета.
// Сортировка стабильная: при равном приоритете сохраняется порядок
// обнаружения (статические раньше триггерных).
func SortActions(actions []Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].PriorityValue() < actions[j].PriorityValue()
	})
}

// IntPtr возвращает указатель на int (для литералов приоритетов).
func IntPtr(v int) *int { return &v }

// StringPtr возвращает указатель на string (для литералов shard id).
func StringPtr(v string) *string { return &v }
