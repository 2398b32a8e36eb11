package domain

// AutomationStatus — статус автоматизаций записи.
//
// Хранится в поле записи, указанном в AutomationConfig.StatusField.
// Меняется только поллером, никогда пользовательским кодом.
//
// Жизненный цикл:
//
//	PENDING_INSERT_AUTOMATIONS → RUNNING_INSERT_AUTOMATIONS → OK
//	                                                        ↘ FAILED_INSERT_AUTOMATIONS
//	PENDING_UPDATE_AUTOMATIONS → RUNNING_UPDATE_AUTOMATIONS → OK
//	                                                        ↘ FAILED_UPDATE_AUTOMATIONS
//
// Промежуточное состояние RUNNING_* не пропускается: по нему оператор
// отличает «ещё не взято», «в обработке» и «обработано с ошибками».
type AutomationStatus string

const (
	// StatusPendingInsert — запись создана, insert-автоматизации ещё не выполнялись.
	StatusPendingInsert AutomationStatus = "PENDING_INSERT_AUTOMATIONS"

	// StatusRunningInsert — insert-автоматизации выполняются.
	StatusRunningInsert AutomationStatus = "RUNNING_INSERT_AUTOMATIONS"

	// StatusFailedInsert — хотя бы одна insert-автоматизация завершилась с ошибкой.
	StatusFailedInsert AutomationStatus = "FAILED_INSERT_AUTOMATIONS"

	// StatusPendingUpdate — запись обновлена, update-автоматизации ещё не выполнялись.
	StatusPendingUpdate AutomationStatus = "PENDING_UPDATE_AUTOMATIONS"

	// StatusRunningUpdate — update-автоматизации выполняются.
	StatusRunningUpdate AutomationStatus = "RUNNING_UPDATE_AUTOMATIONS"

	// StatusFailedUpdate — хотя бы одна update-автоматизация завершилась с ошибкой.
	StatusFailedUpdate AutomationStatus = "FAILED_UPDATE_AUTOMATIONS"

	// StatusOK — все автоматизации успешно завершены.
	StatusOK AutomationStatus = "OK"
)

// PendingStatuses — статусы, по которым поллер выбирает записи.
// Запись выбирается только в PENDING_* состоянии; после выборки она
// сразу переводится в RUNNING_* и повторно выбрана быть не может.
var PendingStatuses = []AutomationStatus{StatusPendingInsert, StatusPendingUpdate}

// IsPending возвращает true для PENDING_* статусов.
func (s AutomationStatus) IsPending() bool {
	return s == StatusPendingInsert || s == StatusPendingUpdate
}

// IsRunning возвращает true для RUNNING_* статусов.
func (s AutomationStatus) IsRunning() bool {
	return s == StatusRunningInsert || s == StatusRunningUpdate
}

// IsTerminal возвращает true, если статус финальный для одного цикла обработки.
func (s AutomationStatus) IsTerminal() bool {
	switch s {
	case StatusOK, StatusFailedInsert, StatusFailedUpdate:
		return true
	default:
		return false
	}
}

// Running возвращает RUNNING_* статус, соответствующий PENDING_* статусу.
// Вторым значением возвращает false, если статус не PENDING_*.
func (s AutomationStatus) Running() (AutomationStatus, bool) {
	switch s {
	case StatusPendingInsert:
		return StatusRunningInsert, true
	case StatusPendingUpdate:
		return StatusRunningUpdate, true
	default:
		return "", false
	}
}

// Failed возвращает FAILED_* статус, соответствующий PENDING_* или RUNNING_*
// статусу. Вторым значением возвращает false для финальных статусов.
func (s AutomationStatus) Failed() (AutomationStatus, bool) {
	switch s {
	case StatusPendingInsert, StatusRunningInsert:
		return StatusFailedInsert, true
	case StatusPendingUpdate, StatusRunningUpdate:
		return StatusFailedUpdate, true
	default:
		return "", false
	}
}

// Pending возвращает PENDING_* статус, соответствующий RUNNING_* статусу.
// Используется recovery sweep для сброса зависших записей.
func (s AutomationStatus) Pending() (AutomationStatus, bool) {
	switch s {
	case StatusRunningInsert:
		return StatusPendingInsert, true
	case StatusRunningUpdate:
		return StatusPendingUpdate, true
	default:
		return "", false
	}
}

// Event возвращает событие-триггер для PENDING_* статуса.
// Вторым значением возвращает false, если статус не PENDING_*.
func (s AutomationStatus) Event() (TriggerEvent, bool) {
	switch s {
	case StatusPendingInsert:
		return EventPostInsert, true
	case StatusPendingUpdate:
		return EventPostUpdate, true
	default:
		return "", false
	}
}
