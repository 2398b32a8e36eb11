// Package cli реализует инструмент командной строки Conveyor.
//
// CLI — клиентская утилита админ-интерфейса поллера. Работает через
// HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент админ-интерфейса. Инкапсулирует запросы, парсинг
// ответов (dataResponse, errorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8082")
//	status, err := client.Status()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Пары ключ-значение (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conveyor status --json | jq .
//
// ## Commands
//
// Команды: status, start, stop, health. Каждая создаётся через
// фабричную функцию, принимающую clientFn и outputFn — замыкания
// для ленивого создания Client и Output после парсинга
// PersistentFlags.
package cli
