package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"telegram-export-converter/internal/domain"
)

// FormatMode определяет обработку пробелов в текстовых узлах.
type FormatMode int

const (
	// FormatBody обрезает пробелы у текстовых узлов тела сообщения.
	FormatBody FormatMode = iota
	// FormatForward сохраняет пробелы внутри непустых узлов пересланного текста.
	FormatForward
)

// tagRuns сопоставляет HTML-теги типам фрагментов.
var tagRuns = map[string]string{
	"strong":     domain.RunBold,
	"em":         domain.RunItalic,
	"u":          domain.RunUnderline,
	"s":          domain.RunStrikethrough,
	"blockquote": domain.RunBlockquote,
	"pre":        domain.RunPre,
	"span":       domain.RunSpoiler,
	"a":          domain.RunTextLink,
}

// FormatText разбирает текстовый блок сообщения в строку и список фрагментов.
func FormatText(sel *goquery.Selection, mode FormatMode) domain.Body {
	if sel.Length() == 0 {
		return domain.EmptyBody()
	}
	var (
		full strings.Builder
		runs []domain.TextRun
	)
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		text, run, ok := formatNode(c, mode)
		if !ok {
			continue
		}
		full.WriteString(text)
		runs = append(runs, run)
	}
	return composeBody(runs, full.String(), mode)
}

// formatNode превращает один дочерний узел в фрагмент.
func formatNode(n *html.Node, mode FormatMode) (string, domain.TextRun, bool) {
	switch n.Type {
	case html.TextNode:
		text := textLeaf(n.Data, mode)
		if text == "" {
			return "", domain.TextRun{}, false
		}
		return text, domain.PlainRun(text), true

	case html.ElementNode:
		text := strings.ReplaceAll(nodeText(n), "\n", "")
		if text == "" {
			return "", domain.TextRun{}, false
		}
		return text, elementRun(n, text), true
	}
	return "", domain.TextRun{}, false
}

func textLeaf(raw string, mode FormatMode) string {
	if mode == FormatForward {
		text := strings.ReplaceAll(raw, "\n", "")
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return text
	}
	return strings.ReplaceAll(strings.TrimSpace(raw), "\n", "")
}

func elementRun(n *html.Node, text string) domain.TextRun {
	runType, ok := tagRuns[n.Data]
	if hidden, _ := attr(n, "aria-hidden"); n.Data == "span" && hidden == "true" {
		runType, ok = domain.RunSpoiler, true
	}
	if !ok {
		runType = domain.RunPlain
	}

	run := domain.TextRun{Type: runType, Text: text}
	if runType == domain.RunTextLink && n.Data == "a" {
		run.Href, run.HasHref = attr(n, "href")
	}
	return run
}

// composeBody выбирает форму поля text: массив при наличии форматирования,
// иначе строка. Пустой блок пересланного текста все равно получает один
// пустой plain-фрагмент.
func composeBody(runs []domain.TextRun, full string, mode FormatMode) domain.Body {
	formatted := false
	for _, r := range runs {
		if r.Type != domain.RunPlain {
			formatted = true
			break
		}
	}

	if formatted {
		entities := make([]domain.TextRun, 0, len(runs)+1)
		entities = append(entities, runs...)
		entities = append(entities, domain.PlainRun(""))
		return domain.Body{Text: domain.FormattedText(runs), Entities: entities}
	}

	if full == "" && mode != FormatForward {
		return domain.EmptyBody()
	}
	return domain.Body{Text: domain.PlainText(full), Entities: []domain.TextRun{domain.PlainRun(full)}}
}
