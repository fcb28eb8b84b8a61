package services

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"telegram-export-converter/internal/domain"
)

var (
	themeChanged  = regexp.MustCompile(`^(.+?) changed chat theme to (.+)`)
	messagePinned = regexp.MustCompile(`^(.+?) pinned`)
)

// ServiceInput содержит то, по чему распознается служебное сообщение.
type ServiceInput struct {
	Text string
	Body *goquery.Selection
}

// ServiceEvent описывает распознанное служебное действие.
type ServiceEvent struct {
	Action    string
	Actor     string
	Emoticon  string
	MessageID int

	hasActor     bool
	hasEmoticon  bool
	hasMessageID bool
}

// ServiceRule сопоставляет текст служебного сообщения действию.
type ServiceRule struct {
	Name  string
	Match func(in ServiceInput) (ServiceEvent, bool)
}

// serviceRules проверяются по порядку, срабатывает первое совпадение.
// Сообщения, не подошедшие ни под одно правило, в вывод не попадают.
var serviceRules = []ServiceRule{
	{Name: "clear_history", Match: matchHistoryCleared},
	{Name: "chat_theme", Match: matchThemeChanged},
	{Name: "pin", Match: matchPinned},
}

func matchHistoryCleared(in ServiceInput) (ServiceEvent, bool) {
	if !strings.Contains(strings.ToLower(in.Text), "history cleared") {
		return ServiceEvent{}, false
	}
	return ServiceEvent{Action: domain.ActionClearHistory}, true
}

func matchThemeChanged(in ServiceInput) (ServiceEvent, bool) {
	m := themeChanged.FindStringSubmatch(in.Text)
	if m == nil {
		return ServiceEvent{}, false
	}
	return ServiceEvent{
		Action:      domain.ActionEditChatTheme,
		Actor:       strings.TrimSpace(m[1]),
		Emoticon:    strings.TrimSpace(m[2]),
		hasActor:    true,
		hasEmoticon: true,
	}, true
}

func matchPinned(in ServiceInput) (ServiceEvent, bool) {
	if in.Body == nil || in.Body.Find("a[onclick]").Length() == 0 {
		return ServiceEvent{}, false
	}
	m := messagePinned.FindStringSubmatch(in.Text)
	if m == nil {
		return ServiceEvent{}, false
	}
	ev := ServiceEvent{
		Action:   domain.ActionPinMessage,
		Actor:    strings.TrimSpace(m[1]),
		hasActor: true,
	}
	ev.MessageID, ev.hasMessageID = ResolvePinTarget(in.Body)
	return ev, true
}

// MatchService возвращает первое сработавшее правило.
func MatchService(in ServiceInput) (ServiceEvent, bool) {
	for _, rule := range serviceRules {
		if ev, ok := rule.Match(in); ok {
			return ev, true
		}
	}
	return ServiceEvent{}, false
}

// apply дописывает событие в запись; актор переопределяется только
// правилами, которые его извлекают.
func (ev ServiceEvent) apply(rec *domain.Record, lookup func(string) string) {
	rec.Set("action", ev.Action)
	if ev.hasActor {
		rec.Set("actor", ev.Actor)
		rec.Set("actor_id", lookup(ev.Actor))
	}
	if ev.hasEmoticon {
		rec.Set("emoticon", ev.Emoticon)
	}
	if ev.hasMessageID {
		rec.Set("message_id", ev.MessageID)
	}
}
