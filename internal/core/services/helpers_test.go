package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"telegram-export-converter/internal/domain"
)

// parseDoc строит документ из фрагмента разметки.
func parseDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

// jsonOf сериализует значение так же, как это делает экспорт.
func jsonOf(t *testing.T, v any) string {
	t.Helper()
	b, err := domain.MarshalNoEscape(v)
	require.NoError(t, err)
	return string(b)
}

// stubProber возвращает заранее заданные метаданные по относительному пути.
type stubProber struct {
	dir   string
	files map[string]*domain.MediaInfo
	calls []string
}

func (p *stubProber) Probe(_ context.Context, path string) *domain.MediaInfo {
	rel, err := filepath.Rel(p.dir, path)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	p.calls = append(p.calls, rel)
	return p.files[rel]
}

func (p *stubProber) ExportDir() string {
	return p.dir
}
