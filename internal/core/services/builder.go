package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/ports"
)

var callDuration = regexp.MustCompile(`\((\d+)\s*seconds\)`)

// SenderState хранит последнего известного отправителя при проходе по документу.
type SenderState struct {
	Name string
	ID   string
}

// InitialSender задает состояние до первого блока с именем отправителя.
func InitialSender() SenderState {
	return SenderState{Name: domain.UnknownSenderID, ID: domain.UnknownSenderID}
}

// messageBuilder строит записи по узлам сообщений.
type messageBuilder struct {
	prober  ports.MediaProber
	senders map[string]string
	logger  *slog.Logger
}

func newMessageBuilder(prober ports.MediaProber, senders map[string]string, logger *slog.Logger) *messageBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &messageBuilder{prober: prober, senders: senders, logger: logger}
}

// lookup возвращает id отправителя по имени.
func (b *messageBuilder) lookup(name string) string {
	if id, ok := b.senders[name]; ok {
		return id
	}
	return domain.UnknownSenderID
}

// nextSender обновляет состояние, если узел объявляет отправителя.
func (b *messageBuilder) nextSender(sel *goquery.Selection, prev SenderState) SenderState {
	nameEl := sel.Find(selBody).First().ChildrenFiltered(selFromName).First()
	if nameEl.Length() == 0 {
		return prev
	}
	name := strippedText(nameEl)
	return SenderState{Name: name, ID: b.lookup(name)}
}

// Build строит запись для узла. Второе значение содержит новое состояние
// отправителя, третье равно false, если узел отброшен.
func (b *messageBuilder) Build(ctx context.Context, sel *goquery.Selection, state SenderState) (*domain.Record, SenderState, bool) {
	state = b.nextSender(sel, state)
	id := messageID(sel)

	kind := Classify(sel)
	var (
		rec *domain.Record
		ok  = true
	)
	switch kind {
	case KindService:
		rec, ok = b.service(sel, id, state)
	case KindCall:
		rec = b.call(sel, id, state)
	case KindContact:
		rec = b.contact(sel, id, state)
	case KindPoll:
		rec = b.poll(sel, id, state)
	case KindLocation:
		rec = b.location(sel, id, state)
	case KindForward:
		rec = b.forward(ctx, sel, id, state)
	default:
		rec = b.regular(ctx, sel, id, state)
	}

	if !ok {
		b.logger.Debug("Unrecognized service message dropped", "id", id)
		return nil, state, false
	}
	return rec, state, true
}

func (b *messageBuilder) base(sel *goquery.Selection, id int, state SenderState) *domain.Record {
	ts, _ := ownDate(sel)
	return domain.NewRecord(
		domain.Field{Key: "id", Value: id},
		domain.Field{Key: "type", Value: domain.MessageTypeMessage},
		domain.Field{Key: "date", Value: ts.ISO},
		domain.Field{Key: "date_unixtime", Value: ts.Unix},
		domain.Field{Key: "from", Value: state.Name},
		domain.Field{Key: "from_id", Value: state.ID},
		domain.Field{Key: "text", Value: domain.PlainText("")},
		domain.Field{Key: "text_entities", Value: []domain.TextRun{}},
	)
}

func serviceBase(id int, ts Timestamp, state SenderState) *domain.Record {
	return domain.NewRecord(
		domain.Field{Key: "id", Value: id},
		domain.Field{Key: "type", Value: domain.MessageTypeService},
		domain.Field{Key: "date", Value: ts.ISO},
		domain.Field{Key: "date_unixtime", Value: ts.Unix},
		domain.Field{Key: "actor", Value: state.Name},
		domain.Field{Key: "actor_id", Value: state.ID},
	)
}

func setBody(rec *domain.Record, body domain.Body) {
	rec.Set("text", body.Text)
	rec.Set("text_entities", body.Entities)
}

func (b *messageBuilder) service(sel *goquery.Selection, id int, state SenderState) (*domain.Record, bool) {
	body := sel.Find(selServiceBody).First()
	ev, ok := MatchService(ServiceInput{Text: strippedText(body), Body: body})
	if !ok {
		return nil, false
	}
	rec := serviceBase(id, NearestDate(sel), state)
	setBody(rec, domain.EmptyBody())
	ev.apply(rec, b.lookup)
	return rec, true
}

func (b *messageBuilder) call(sel *goquery.Selection, id int, state SenderState) *domain.Record {
	status := strippedText(sel.Find(selCall).First().Find(selBody).First().Find(selCallStatus).First())
	duration, hasDuration := parseCallDuration(status)

	ts, _ := ownDate(sel)
	rec := serviceBase(id, ts, state)
	rec.Set("action", domain.ActionPhoneCall)
	setBody(rec, domain.EmptyBody())
	rec.Set("discard_reason", discardReason(status, hasDuration))
	if hasDuration {
		rec.Set("duration_seconds", duration)
	}
	return rec
}

func parseCallDuration(status string) (int, bool) {
	m := callDuration.FindStringSubmatch(status)
	if m == nil {
		return 0, false
	}
	d, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return d, true
}

// discardReason выводит причину завершения звонка по ключевым словам статуса.
func discardReason(status string, hasDuration bool) string {
	st := strings.ToLower(status)
	switch {
	case strings.Contains(st, "outgoing") && hasDuration:
		return "hangup"
	case strings.Contains(st, "outgoing"):
		return "busy"
	case strings.Contains(st, "cancelled"):
		return "missed"
	case strings.Contains(st, "declined"):
		return "busy"
	case strings.Contains(st, "missed"):
		return "missed"
	case strings.Contains(st, "incoming") && hasDuration:
		return "hangup"
	}
	return st
}

func (b *messageBuilder) contact(sel *goquery.Selection, id int, state SenderState) *domain.Record {
	card := sel.Find(selContact).First()
	rec := b.base(sel, id, state)
	rec.Set("contact_information", domain.Contact{
		FirstName:   strippedText(card.Find(selContactName).First()),
		PhoneNumber: strippedText(card.Find(selCallStatus).First()),
	})
	return rec
}

func (b *messageBuilder) poll(sel *goquery.Selection, id int, state SenderState) *domain.Record {
	rec := b.base(sel, id, state)
	if fwd := sel.Find(selForward).First(); fwd.Length() > 0 {
		if orig := fwd.ChildrenFiltered(selFromName).First(); orig.Length() > 0 {
			rec.Set("forwarded_from", withoutSpans(orig, "span.date.details"))
		}
	}

	block := sel.Find(selPoll).First()
	poll := domain.Poll{
		Question:    strippedText(block.Find(selPollQuestion).First()),
		TotalVoters: leadingInt(strippedText(block.Find(selPollTotal).First())),
		Answers:     []domain.PollAnswer{},
	}
	block.Find(selPollAnswer).Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(strings.TrimLeft(strippedText(a), "- "))
		poll.Answers = append(poll.Answers, domain.PollAnswer{Text: text})
	})
	rec.Set("poll", poll)
	return rec
}

// leadingInt разбирает первое слово строки вида "12 votes".
func leadingInt(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

func (b *messageBuilder) location(sel *goquery.Selection, id int, state SenderState) *domain.Record {
	rec := b.base(sel, id, state)
	b.enrichReply(sel, rec)
	loc, _ := findLocation(sel)
	rec.Set("location_information", loc)
	return rec
}

func (b *messageBuilder) forward(ctx context.Context, sel *goquery.Selection, id int, state SenderState) *domain.Record {
	rec := b.base(sel, id, state)
	fwd := sel.Find(selForward).First()

	body := FormatText(sel.Find(selText).First(), FormatBody)
	b.enrichReply(sel, rec)

	if orig := fwd.Find(selFromName).First(); orig.Length() > 0 {
		rec.Set("forwarded_from", withoutSpans(orig, "span"))
	}

	if href, ok := fwd.Find(selMediaWrap).First().Find("a[href]").First().Attr("href"); ok {
		b.attach(ctx, rec, href)
	}

	if txt := fwd.Find(selText).First(); txt.Length() > 0 {
		body = FormatText(txt, FormatForward)
	}
	setBody(rec, body)
	return rec
}

func (b *messageBuilder) regular(ctx context.Context, sel *goquery.Selection, id int, state SenderState) *domain.Record {
	rec := b.base(sel, id, state)
	setBody(rec, FormatText(sel.Find(selText).First(), FormatBody))
	b.enrichReply(sel, rec)

	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if a.ParentsFiltered(selText).Length() > 0 {
			return
		}
		b.attach(ctx, rec, a.AttrOr("href", ""))
	})
	return rec
}

func (b *messageBuilder) enrichReply(sel *goquery.Selection, rec *domain.Record) {
	if target, ok := ResolveReply(sel); ok {
		rec.Set("reply_to_message_id", target)
	}
}

// attach добавляет вложение: внешние ссылки сохраняются как есть,
// локальные пути разбираются относительно корня экспорта.
func (b *messageBuilder) attach(ctx context.Context, rec *domain.Record, href string) {
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	if strings.HasPrefix(href, "http") {
		rec.Set("file", href)
		return
	}
	if b.prober == nil {
		return
	}
	info := b.prober.Probe(ctx, filepath.Join(b.prober.ExportDir(), filepath.FromSlash(href)))
	if info == nil {
		b.logger.Debug("Attachment not found in export", "href", href)
		return
	}
	rec.Merge(info.Fields())
}
