package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrHandlerNotFound — обработчик с таким CodeRef не зарегистрирован.
var ErrHandlerNotFound = errors.New("handler not found")

// Registry — реестр обработчиков автоматизаций.
//
// Потокобезопасен. Заполняется встраивающим приложением до запуска
// поллера; регистрация во время работы допустима, но действует
// со следующего вызова.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]RecordHandler
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]RecordHandler),
	}
}

// Register регистрирует обработчик.
// Если обработчик с таким именем уже существует, он будет перезаписан.
func (r *Registry) Register(h RecordHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
}

// RegisterFunc регистрирует функцию как обработчик.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, inv *Invocation) error) {
	r.Register(HandlerFunc{HandlerName: name, Fn: fn})
}

// Get возвращает обработчик по имени.
// Возвращает ErrHandlerNotFound, если обработчик не найден.
func (r *Registry) Get(name string) (RecordHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
	return h, nil
}

// Has проверяет, зарегистрирован ли обработчик.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[name]
	return exists
}

// Names возвращает имена всех зарегистрированных обработчиков.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
