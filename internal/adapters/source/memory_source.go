package source

import (
	"errors"
	"fmt"

	"telegram-export-converter/internal/ports"
)

// ErrNoData возвращается MemorySource без данных.
var ErrNoData = errors.New("data not set")

// MemorySource отдает шард, который уже прочитан в память. Так messages.html
// читается с диска один раз, хотя нужен и для имени чата, и как первый шард.
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource создает источник; name попадает только в сообщения об ошибках.
func NewMemorySource(name string, data []byte) ports.DataSource {
	return &MemorySource{name: name, data: data}
}

// Fetch возвращает данные без копирования. Вызывающий не должен их изменять.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("%s: %w", s.name, ErrNoData)
	}
	return s.data, nil
}
