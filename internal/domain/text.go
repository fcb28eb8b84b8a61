package domain

import (
	"bytes"
)

// Типы текстовых фрагментов.
const (
	RunPlain         = "plain"
	RunBold          = "bold"
	RunItalic        = "italic"
	RunUnderline     = "underline"
	RunStrikethrough = "strikethrough"
	RunSpoiler       = "spoiler"
	RunBlockquote    = "blockquote"
	RunPre           = "pre"
	RunTextLink      = "text_link"
)

// TextRun описывает непрерывный фрагмент текста с одним видом форматирования.
// Href заполняется только для text_link, Language только для pre,
// Collapsed только для blockquote.
type TextRun struct {
	Type      string
	Text      string
	Href      string
	HasHref   bool
	Language  string
	Collapsed bool
}

// PlainRun создает простой фрагмент.
func PlainRun(text string) TextRun {
	return TextRun{Type: RunPlain, Text: text}
}

// MarshalJSON выводит только ключи, которые есть у данного типа фрагмента.
func (t TextRun) MarshalJSON() ([]byte, error) {
	fields := []Field{{Key: "type", Value: t.Type}, {Key: "text", Value: t.Text}}
	switch t.Type {
	case RunPre:
		fields = append(fields, Field{Key: "language", Value: t.Language})
	case RunBlockquote:
		fields = append(fields, Field{Key: "collapsed", Value: t.Collapsed})
	case RunTextLink:
		if t.HasHref {
			fields = append(fields, Field{Key: "href", Value: t.Href})
		}
	}
	return NewRecord(fields...).MarshalJSON()
}

// Text хранит значение поля text: строка, если форматирования нет, или массив
// фрагментов, завершенный пустой строкой, если оно есть.
type Text struct {
	Plain string
	Runs  []TextRun
}

// PlainText создает неформатированный текст.
func PlainText(s string) Text {
	return Text{Plain: s}
}

// FormattedText создает форматированный текст из фрагментов.
func FormattedText(runs []TextRun) Text {
	cp := make([]TextRun, len(runs))
	copy(cp, runs)
	return Text{Runs: cp}
}

// IsFormatted сообщает, сериализуется ли текст как массив.
func (t Text) IsFormatted() bool {
	return t.Runs != nil
}

// MarshalJSON реализует json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.IsFormatted() {
		return MarshalNoEscape(t.Plain)
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for _, run := range t.Runs {
		b, err := run.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte(',')
	}
	// Завершающая пустая строка обязательна для совпадения со схемой.
	buf.WriteString(`""]`)
	return buf.Bytes(), nil
}

// Body содержит результат разбора текстового блока сообщения.
type Body struct {
	Text     Text
	Entities []TextRun
}

// EmptyBody возвращает пустой текст с пустым списком сущностей.
func EmptyBody() Body {
	return Body{Text: PlainText(""), Entities: []TextRun{}}
}
