package services

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Селекторы разметки HTML-экспорта.
const (
	selMessage      = "div.message"
	selBody         = "div.body"
	selServiceBody  = "div.body.details"
	selFromName     = "div.from_name"
	selDate         = "div.pull_right.date.details"
	selText         = "div.text"
	selReply        = "div.reply_to"
	selCall         = "div.media_call"
	selCallStatus   = "div.status.details"
	selContact      = "div.media_contact"
	selContactName  = "div.title.bold"
	selPoll         = "div.media_poll"
	selPollQuestion = "div.question.bold"
	selPollTotal    = "div.total.details"
	selPollAnswer   = "div.answer"
	selLocationLink = "a.media_location"
	selLocationDiv  = "div.location"
	selForward      = "div.forwarded.body"
	selMediaWrap    = "div.media_wrap"
)

// strippedText склеивает текстовые узлы поддерева, предварительно обрезав
// пробелы у каждого и пропустив пустые.
func strippedText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
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
	walk(sel.Nodes[0])
	return b.String()
}

// nodeText возвращает весь текст поддерева без обработки.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// attr возвращает значение атрибута узла.
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// messageID разбирает атрибут id вида message123; иначе -1.
func messageID(sel *goquery.Selection) int {
	raw, _ := sel.Attr("id")
	if !strings.HasPrefix(raw, "message") {
		return -1
	}
	id, err := strconv.Atoi(strings.TrimPrefix(raw, "message"))
	if err != nil {
		return -1
	}
	return id
}

// withoutSpans возвращает текст элемента без вложенных span, подходящих под селектор.
func withoutSpans(sel *goquery.Selection, spanSelector string) string {
	clone := sel.First().Clone()
	clone.Find(spanSelector).Remove()
	return strippedText(clone)
}
