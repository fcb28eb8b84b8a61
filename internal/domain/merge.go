package domain

import "encoding/json"

// MergedChat описывает результат объединения шардов: заголовок первого шарда
// и сообщения всех шардов в порядке шардов.
type MergedChat struct {
	Header   *Record
	Messages []json.RawMessage
}

// MarshalJSON выводит поля заголовка, затем messages.
func (m *MergedChat) MarshalJSON() ([]byte, error) {
	out := NewRecord()
	if m.Header != nil {
		for _, k := range m.Header.Keys() {
			if k == "messages" {
				continue
			}
			v, _ := m.Header.Get(k)
			out.Set(k, v)
		}
	}
	msgs := m.Messages
	if msgs == nil {
		msgs = []json.RawMessage{}
	}
	out.Set("messages", msgs)
	return out.MarshalJSON()
}

// Name возвращает имя чата из заголовка или пустую строку.
func (m *MergedChat) Name() string {
	if m == nil || m.Header == nil {
		return ""
	}
	v, _ := m.Header.Get("name")
	switch n := v.(type) {
	case string:
		return n
	case json.RawMessage:
		var s string
		if json.Unmarshal(n, &s) == nil {
			return s
		}
	}
	return ""
}
