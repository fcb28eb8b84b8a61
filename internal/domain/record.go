package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field хранит пару ключ/значение в порядке вставки.
type Field struct {
	Key   string
	Value any
}

// Record представляет одно сообщение экспорта в виде упорядоченного набора полей.
// Порядок ключей сохраняется при сериализации, повторный Set заменяет
// значение на месте, не меняя позицию ключа.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord создает запись из полей в заданном порядке.
func NewRecord(fields ...Field) *Record {
	r := &Record{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set добавляет поле в конец или заменяет значение существующего.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Merge применяет поля по очереди, как Set.
func (r *Record) Merge(fields []Field) {
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
}

// Get возвращает значение поля.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has сообщает, есть ли поле в записи.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Delete удаляет поле, сохраняя порядок остальных.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys возвращает копию списка ключей в текущем порядке.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len возвращает количество полей.
func (r *Record) Len() int {
	return len(r.keys)
}

// ID возвращает значение поля id или -1, если его нет.
func (r *Record) ID() int {
	if v, ok := r.values["id"].(int); ok {
		return v
	}
	return -1
}

// String возвращает значение строкового поля или пустую строку.
func (r *Record) String(key string) string {
	s, _ := r.values[key].(string)
	return s
}

// MarshalJSON сериализует поля в порядке вставки.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := MarshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := MarshalNoEscape(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalNoEscape кодирует значение в JSON без экранирования <, > и &,
// как это делает нативный экспорт.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
