package services

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"telegram-export-converter/internal/domain"
)

// Kind задает вид узла сообщения. Виды взаимоисключающие.
type Kind int

const (
	KindService Kind = iota
	KindCall
	KindContact
	KindPoll
	KindLocation
	KindForward
	KindDefault
)

func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindCall:
		return "call"
	case KindContact:
		return "contact"
	case KindPoll:
		return "poll"
	case KindLocation:
		return "location"
	case KindForward:
		return "forward"
	default:
		return "default"
	}
}

type kindRule struct {
	kind  Kind
	match func(sel *goquery.Selection) bool
}

// kindRules задают приоритет: первый сработавший определяет вид.
var kindRules = []kindRule{
	{KindService, func(s *goquery.Selection) bool { return s.HasClass("service") }},
	{KindCall, func(s *goquery.Selection) bool { return s.Find(selCall).Length() > 0 }},
	{KindContact, func(s *goquery.Selection) bool { return s.Find(selContact).Length() > 0 }},
	{KindPoll, func(s *goquery.Selection) bool { return s.Find(selPoll).Length() > 0 }},
	{KindLocation, func(s *goquery.Selection) bool { _, ok := findLocation(s); return ok }},
	{KindForward, func(s *goquery.Selection) bool { return s.Find(selForward).Length() > 0 }},
}

// Classify определяет вид узла div.message.
func Classify(sel *goquery.Selection) Kind {
	for _, r := range kindRules {
		if r.match(sel) {
			return r.kind
		}
	}
	return KindDefault
}

// findLocation ищет координаты в ссылке на карту или в блоке с data-атрибутами.
func findLocation(sel *goquery.Selection) (domain.Location, bool) {
	if href, ok := sel.Find(selLocationLink).First().Attr("href"); ok {
		if loc, ok := locationFromHref(href); ok {
			return loc, true
		}
	}
	div := sel.Find(selLocationDiv + "[data-lat][data-lng]").First()
	if div.Length() == 0 {
		return domain.Location{}, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(div.AttrOr("data-lat", "")), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(div.AttrOr("data-lng", "")), 64)
	if errLat != nil || errLng != nil {
		return domain.Location{}, false
	}
	return domain.Location{Latitude: lat, Longitude: lng}, true
}

// locationFromHref разбирает параметр q=lat,lng ссылки на карту.
func locationFromHref(href string) (domain.Location, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return domain.Location{}, false
	}
	q := u.Query().Get("q")
	latRaw, lngRaw, found := strings.Cut(q, ",")
	if !found {
		return domain.Location{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return domain.Location{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return domain.Location{}, false
	}
	return domain.Location{Latitude: lat, Longitude: lng}, true
}
