package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/ports"
)

// ErrNilDocument возвращается, если на вход не передан документ.
var ErrNilDocument = errors.New("nil document")

// Option является функциональной опцией для настройки ConversionService.
type Option func(*ConversionService)

// WithLogger устанавливает логгер для сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(s *ConversionService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSenders задает справочник имя -> id отправителя.
func WithSenders(senders map[string]string) Option {
	return func(s *ConversionService) {
		s.senders = senders
	}
}

// ConversionService преобразует документ шарда в объект чата.
// Документы независимы, поэтому сервис можно вызывать из нескольких
// горутин; внутри одного документа обход строго последовательный.
type ConversionService struct {
	prober  ports.MediaProber
	senders map[string]string
	log     *slog.Logger
}

// NewConversionService создает сервис с опциями.
func NewConversionService(prober ports.MediaProber, opts ...Option) *ConversionService {
	s := &ConversionService{
		prober:  prober,
		senders: map[string]string{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.Converter = (*ConversionService)(nil)

// Convert обходит все узлы div.message в порядке документа.
func (s *ConversionService) Convert(ctx context.Context, doc *goquery.Document, meta domain.ChatMeta) (*domain.ExportedChat, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	b := newMessageBuilder(s.prober, s.senders, s.log)
	state := InitialSender()
	var (
		records []*domain.Record
		dropped int
		err     error
	)

	doc.Find(selMessage).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		var (
			rec *domain.Record
			ok  bool
		)
		rec, state, ok = b.Build(ctx, sel, state)
		if !ok {
			dropped++
			return true
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("conversion interrupted: %w", err)
	}

	s.log.DebugContext(ctx, "Document converted", "chat", meta.Name, "messages", len(records), "dropped", dropped)
	return AssembleChat(meta, records), nil
}
