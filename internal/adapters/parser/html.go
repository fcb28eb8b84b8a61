package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"telegram-export-converter/internal/ports"
)

// ErrChatNameNotFound возвращается, если в заголовке страницы нет имени чата.
var ErrChatNameNotFound = errors.New("chat name not found in page header")

const chatNameSelector = ".page_header .text.bold"

// HTMLParser реализует интерфейс Parser для HTML-экспорта.
type HTMLParser struct{}

// NewHTMLParser создает новый экземпляр HTMLParser.
func NewHTMLParser() ports.Parser {
	return &HTMLParser{}
}

// Parse строит дерево документа. Разбор HTML терпим к ошибкам разметки,
// поэтому ошибка возможна только при пустом вводе.
func (p *HTMLParser) Parse(data []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// ChatName читает имя чата из заголовка страницы.
func (p *HTMLParser) ChatName(doc *goquery.Document) (string, error) {
	if doc == nil {
		return "", ErrChatNameNotFound
	}
	header := doc.Find(chatNameSelector).First()
	if header.Length() == 0 {
		return "", ErrChatNameNotFound
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(header.Nodes[0])
	return b.String(), nil
}
