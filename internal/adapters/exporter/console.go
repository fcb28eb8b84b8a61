package exporter

import (
	"fmt"
	"io"

	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода справочника
// отправителей в человекочитаемом виде.
type ConsoleExporter struct{}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter() ports.Exporter {
	return &ConsoleExporter{}
}

// Export выводит список отправителей. Принимает []domain.Sender.
func (e *ConsoleExporter) Export(w io.Writer, v any) error {
	senders, ok := v.([]domain.Sender)
	if !ok {
		return fmt.Errorf("console exporter: unsupported value %T", v)
	}

	fmt.Fprintln(w, "--- Chat Senders ---")
	if len(senders) == 0 {
		fmt.Fprintln(w, "No senders found.")
		return nil
	}
	for i, s := range senders {
		if s.Resolved {
			fmt.Fprintf(w, "%d. Name: %s, ID: %s, Messages: %d\n", i+1, s.Name, s.ID, s.Messages)
		} else {
			// Такие имена получат from_id "Unknown"
			fmt.Fprintf(w, "%d. Name: %s, ID: %s (not in directory), Messages: %d\n", i+1, s.Name, s.ID, s.Messages)
		}
	}
	return nil
}
