package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-export-converter/internal/domain"
)

func TestExtractionService(t *testing.T) {
	t.Run("NewExtractionService создает корректный экземпляр", func(t *testing.T) {
		assert.NotNil(t, NewExtractionService(nil))
	})

	t.Run("ExtractSenders собирает справочник в порядке появления", func(t *testing.T) {
		service := NewExtractionService(map[string]string{"Alice": "user1", "Bob": "user2"})

		senders, err := service.ExtractSenders(parseDoc(t, exportPage))
		require.NoError(t, err)

		expected := []domain.Sender{
			{Name: "Alice", ID: "user1", Resolved: true, Messages: 5},
			{Name: "Bob", ID: "user2", Resolved: true, Messages: 5},
		}
		assert.Equal(t, expected, senders)
	})

	t.Run("Неизвестные имена помечаются", func(t *testing.T) {
		service := NewExtractionService(nil)
		doc := parseDoc(t, `<div class="message"><div class="body"><div class="from_name">Eve</div></div></div>
<div class="message"><div class="body"><div class="text">no name</div></div></div>`)

		senders, err := service.ExtractSenders(doc)
		require.NoError(t, err)
		assert.Equal(t, []domain.Sender{{Name: "Eve", ID: domain.UnknownSenderID, Messages: 2}}, senders)
	})

	t.Run("nil документ", func(t *testing.T) {
		_, err := NewExtractionService(nil).ExtractSenders(nil)
		assert.ErrorIs(t, err, ErrNilDocument)
	})
}
