package ports

import (
	"context"
	"io"

	"github.com/PuerkitoBio/goquery"

	"telegram-export-converter/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных шарда.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для разбора HTML-документа шарда.
type Parser interface {
	// Parse строит дерево документа из сырых данных.
	Parse(data []byte) (*goquery.Document, error)
	// ChatName читает имя чата из заголовка страницы.
	ChatName(doc *goquery.Document) (string, error)
}

// MediaProber определяет интерфейс для получения метаданных вложений.
type MediaProber interface {
	// Probe возвращает nil, если файла не существует.
	Probe(ctx context.Context, path string) *domain.MediaInfo
	// ExportDir возвращает корень экспорта, относительно которого
	// разрешаются ссылки на вложения.
	ExportDir() string
}

// Converter определяет интерфейс для преобразования одного шарда.
type Converter interface {
	Convert(ctx context.Context, doc *goquery.Document, meta domain.ChatMeta) (*domain.ExportedChat, error)
}

// Merger определяет интерфейс для объединения нескольких шардов в один лог.
type Merger interface {
	Merge(shards [][]byte) (*domain.MergedChat, error)
}

// SenderExtractor определяет интерфейс для построения справочника отправителей.
type SenderExtractor interface {
	ExtractSenders(doc *goquery.Document) ([]domain.Sender, error)
}

// Exporter определяет интерфейс для вывода результата конвертации.
type Exporter interface {
	Export(w io.Writer, v any) error
}
