package domain

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCatalogFile читает каталог метаданных из JSON-файла: массив
// описаний таблиц в формате TableDescriptor. Каждое описание
// валидируется; первая невалидная таблица — ошибка загрузки.
func LoadCatalogFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog разбирает JSON-описание каталога.
func ParseCatalog(data []byte) (*StaticCatalog, error) {
	var tables []*TableDescriptor
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
	}
	return NewStaticCatalog(tables...), nil
}
