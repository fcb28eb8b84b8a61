package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"telegram-export-converter/internal/domain"
)

// ErrUnknownShardFormat означает, что шард не является ни объектом с messages, ни массивом.
var ErrUnknownShardFormat = errors.New("unknown shard format")

// MergeService склеивает JSON-шарды в один лог.
type MergeService struct {
	log *slog.Logger
}

// NewMergeService создает MergeService.
func NewMergeService(log *slog.Logger) *MergeService {
	if log == nil {
		log = slog.Default()
	}
	return &MergeService{log: log}
}

// Merge объединяет шарды в переданном порядке. Заголовок берется из первого
// шарда-объекта; шарды-массивы дают только сообщения. Шарды неизвестного
// формата пропускаются с предупреждением.
func (s *MergeService) Merge(shards [][]byte) (*domain.MergedChat, error) {
	merged := &domain.MergedChat{Messages: []json.RawMessage{}}

	for i, data := range shards {
		header, msgs, err := decodeShard(data)
		if errors.Is(err, ErrUnknownShardFormat) {
			s.log.Warn("Skipping shard of unknown format", "shard", i)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode shard %d: %w", i, err)
		}
		if header != nil && merged.Header == nil {
			merged.Header = header
		}
		merged.Messages = append(merged.Messages, msgs...)
	}

	if merged.Header == nil {
		merged.Header = domain.NewRecord()
	}
	s.log.Info("Shards merged", "shards", len(shards), "messages", len(merged.Messages))
	return merged, nil
}

// decodeShard разбирает шард с сохранением порядка ключей заголовка.
func decodeShard(data []byte) (*domain.Record, []json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, ErrUnknownShardFormat
	}

	switch data[0] {
	case '[':
		var msgs []json.RawMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, nil, err
		}
		return nil, msgs, nil
	case '{':
		return decodeObjectShard(data)
	}
	return nil, nil, ErrUnknownShardFormat
}

func decodeObjectShard(data []byte) (*domain.Record, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	header := domain.NewRecord()
	var (
		msgs        []json.RawMessage
		hasMessages bool
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("failed to decode key %q: %w", key, err)
		}
		if key == "messages" {
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return nil, nil, fmt.Errorf("messages is not an array: %w", err)
			}
			hasMessages = true
			continue
		}
		header.Set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	if !hasMessages {
		return nil, nil, ErrUnknownShardFormat
	}
	return header, msgs, nil
}
