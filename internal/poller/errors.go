package poller

import "errors"

// Ошибки конфигурации поллера.
var (
	// ErrNoSessionSupplier — супервизор не может стартовать без
	// поставщика сессий: тики не должны выполняться без контекста
	// авторизации.
	ErrNoSessionSupplier = errors.New("no session supplier configured")

	// ErrNoTriggerEvent — статус не отображается в событие-триггер
	// (единица работы сконфигурирована не на PENDING_* статус).
	ErrNoTriggerEvent = errors.New("status has no trigger event")

	// ErrNoProcessRunner — автоматизация ссылается на именованный
	// процесс, но ProcessRunner не сконфигурирован.
	ErrNoProcessRunner = errors.New("no process runner configured")

	// ErrNoRegistry — автоматизация ссылается на обработчик,
	// но реестр обработчиков не сконфигурирован.
	ErrNoRegistry = errors.New("no handler registry configured")
)
