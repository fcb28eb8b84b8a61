package source

import (
	"errors"
	"fmt"
	"os"

	"telegram-export-converter/internal/ports"
)

// ErrEmptyPath возвращается, если путь к файлу не задан.
var ErrEmptyPath = errors.New("file path is not set")

// FileSource реализует интерфейс DataSource для чтения шарда с диска.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// Fetch читает файл по указанному пути и возвращает его содержимое.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
	}

	return data, nil
}
