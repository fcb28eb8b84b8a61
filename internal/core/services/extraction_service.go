package services

import (
	"github.com/PuerkitoBio/goquery"

	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/ports"
)

// ExtractionServiceImpl реализует интерфейс SenderExtractor.
type ExtractionServiceImpl struct {
	senders map[string]string
}

// NewExtractionService создает новый экземпляр ExtractionServiceImpl.
func NewExtractionService(senders map[string]string) ports.SenderExtractor {
	return &ExtractionServiceImpl{senders: senders}
}

// ExtractSenders собирает имена отправителей в порядке первого появления
// и помечает, какие из них есть в справочнике.
func (s *ExtractionServiceImpl) ExtractSenders(doc *goquery.Document) ([]domain.Sender, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	var senders []domain.Sender
	// Индекс отправителя в срезе по имени
	index := make(map[string]int)

	count := func(name string) {
		if name == "" {
			return
		}
		if i, ok := index[name]; ok {
			senders[i].Messages++
			return
		}
		id, resolved := s.senders[name]
		if !resolved {
			id = domain.UnknownSenderID
		}
		index[name] = len(senders)
		senders = append(senders, domain.Sender{Name: name, ID: id, Resolved: resolved, Messages: 1})
	}

	last := ""
	doc.Find(selMessage).Each(func(_ int, sel *goquery.Selection) {
		if sel.HasClass("service") {
			return
		}
		// Сообщения без имени продолжают серию предыдущего отправителя.
		if nameEl := sel.Find(selBody).First().ChildrenFiltered(selFromName).First(); nameEl.Length() > 0 {
			last = strippedText(nameEl)
		}
		count(last)
	})

	return senders, nil
}
