package backend

import (
	"context"

	"github.com/shaiso/Conveyor/internal/domain"
)

// CodeRefRunRecordScript — обработчик, запускающий скрипт над записями.
// Под этим именем его регистрирует встраивающее приложение; селектор
// синтезирует триггерные автоматизации именно с этим CodeRef,
// передавая идентификатор скрипта в Values[ValueScriptID].
const CodeRefRunRecordScript = "record.script"

// ValueScriptID — ключ параметра с идентификатором скрипта.
const ValueScriptID = "script_id"

// Invocation — данные одного вызова обработчика: таблица, совпавшие
// записи и конфигурация автоматизации.
type Invocation struct {
	TableName string
	Records   []*domain.Record
	Action    domain.Action
}

// RecordHandler — обработчик автоматизации по CodeRef.
//
// Run вызывается синхронно; возврат ошибки помечает автоматизацию
// как неуспешную для всего батча.
type RecordHandler interface {
	// Name возвращает имя обработчика (значение CodeRef).
	Name() string

	// Run выполняет автоматизацию над записями.
	Run(ctx context.Context, inv *Invocation) error
}

// HandlerFunc адаптирует функцию к интерфейсу RecordHandler.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, inv *Invocation) error
}

// Name возвращает имя обработчика.
func (h HandlerFunc) Name() string { return h.HandlerName }

// Run вызывает функцию.
func (h HandlerFunc) Run(ctx context.Context, inv *Invocation) error {
	return h.Fn(ctx, inv)
}

// ProcessInput — вход именованного процесса.
type ProcessInput struct {
	// TableName — таблица, над которой работает процесс.
	TableName string

	// Filter — фильтр по первичным ключам совпавших записей.
	Filter *domain.Filter

	// Values — параметры автоматизации.
	Values map[string]any

	// SuppressFrontendSteps — процесс выполняется в фоне,
	// интерактивные шаги пропускаются.
	SuppressFrontendSteps bool
}

// ProcessRunner — запуск именованного процесса.
type ProcessRunner interface {
	// Run запускает процесс и блокируется до его завершения.
	// Ошибка процесса возвращается как error.
	Run(ctx context.Context, processName string, input ProcessInput) error
}
