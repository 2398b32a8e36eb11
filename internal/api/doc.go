// Package api содержит административный HTTP-интерфейс поллера.
//
// Структура:
//   - admin.go      — Handler: /status, /start, /stop
//   - middleware.go — middleware (logging, recovery)
//   - response.go   — унифицированные JSON-ответы
//
// Интерфейс управляет жизненным циклом супервизора поллинга и отдаёт
// его состояние; /healthz и /metrics регистрирует сам бинарь.
package api
