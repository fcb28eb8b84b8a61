package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// exportDateLayouts: атрибут title даты встречается со смещением в двух
// записях и без него в старых экспортах.
var exportDateLayouts = []string{
	"02.01.2006 15:04:05 UTC-07:00",
	"02.01.2006 15:04:05 UTC-0700",
	"02.01.2006 15:04:05",
}

const isoLayout = "2006-01-02T15:04:05"

var goToMessage = regexp.MustCompile(`GoToMessage\((\d+)\)`)

// Timestamp хранит дату сообщения в двух представлениях вывода.
type Timestamp struct {
	ISO  string
	Unix string
}

// parseExportDate разбирает значение title блока даты.
func parseExportDate(title string) (time.Time, error) {
	title = strings.TrimSpace(title)
	for _, layout := range exportDateLayouts {
		if t, err := time.Parse(layout, title); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized export date %q", title)
}

// ownDate возвращает дату, указанную в самом узле сообщения.
func ownDate(sel *goquery.Selection) (Timestamp, bool) {
	title, ok := sel.Find(selDate).First().Attr("title")
	if !ok {
		return Timestamp{}, false
	}
	t, err := parseExportDate(title)
	if err != nil {
		return Timestamp{}, false
	}
	return Timestamp{ISO: t.Format(isoLayout), Unix: strconv.FormatInt(t.Unix(), 10)}, true
}

// NearestDate ищет дату в самом узле, затем среди предыдущих сообщений
// (ближайшее первым), затем среди следующих. Если дат нет вовсе,
// возвращаются пустые строки.
func NearestDate(sel *goquery.Selection) Timestamp {
	if ts, ok := ownDate(sel); ok {
		return ts
	}
	for s := sel.Prev(); s.Length() > 0; s = s.Prev() {
		if !s.Is(selMessage) {
			continue
		}
		if ts, ok := ownDate(s); ok {
			return ts
		}
	}
	for s := sel.Next(); s.Length() > 0; s = s.Next() {
		if !s.Is(selMessage) {
			continue
		}
		if ts, ok := ownDate(s); ok {
			return ts
		}
	}
	return Timestamp{}
}

// ResolveReply возвращает id сообщения, на которое отвечает узел.
func ResolveReply(sel *goquery.Selection) (int, bool) {
	onclick, ok := sel.Find(selReply).First().Find("a[onclick]").First().Attr("onclick")
	if !ok {
		return 0, false
	}
	return messageRef(onclick)
}

// ResolvePinTarget возвращает id закрепленного сообщения из служебного блока.
func ResolvePinTarget(body *goquery.Selection) (int, bool) {
	onclick, ok := body.Find("a[onclick]").First().Attr("onclick")
	if !ok {
		return 0, false
	}
	return messageRef(onclick)
}

func messageRef(onclick string) (int, bool) {
	m := goToMessage.FindStringSubmatch(onclick)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}
