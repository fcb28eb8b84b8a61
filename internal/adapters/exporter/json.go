package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"telegram-export-converter/internal/ports"
)

// Отступы файлов вывода: шарды пишутся с 4 пробелами, объединенный лог с 2.
const (
	ShardIndent  = 4
	MergedIndent = 2
)

// JSONExporter реализует интерфейс Exporter для записи JSON.
// Не-ASCII символы и <, >, & выводятся как есть.
type JSONExporter struct {
	indent string
}

// NewJSONExporter создает экспортер с отступом в indent пробелов.
// Нулевой отступ дает компактный вывод.
func NewJSONExporter(indent int) ports.Exporter {
	if indent < 0 {
		indent = 0
	}
	return &JSONExporter{indent: strings.Repeat(" ", indent)}
}

// Export записывает значение в w.
func (e *JSONExporter) Export(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if e.indent != "" {
		enc.SetIndent("", e.indent)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
