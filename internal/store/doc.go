// Package store реализует доступ к хранилищу записей.
//
// Структура:
//   - store.go    — интерфейс RecordStore и общие ошибки
//   - pgstore.go  — реализация поверх PostgreSQL (pgx), SQL строится
//     из описаний таблиц каталога
//   - memstore.go — in-memory реализация для тестов и встраивания
//
// Поллер работает только через интерфейс RecordStore; какая реализация
// используется — решает composition root.
package store
