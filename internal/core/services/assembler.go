package services

import (
	"sort"

	"telegram-export-converter/internal/domain"
)

// AssembleChat сортирует записи по id (устойчиво), упорядочивает ключи
// и оборачивает результат в корневой объект чата.
func AssembleChat(meta domain.ChatMeta, records []*domain.Record) *domain.ExportedChat {
	sorted := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID() < sorted[j].ID()
	})

	for i, r := range sorted {
		sorted[i] = OrderRecord(r)
	}

	return &domain.ExportedChat{
		Name:     meta.Name,
		Type:     domain.ChatTypePersonal,
		ID:       meta.ID,
		Messages: sorted,
	}
}
