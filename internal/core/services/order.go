package services

import "telegram-export-converter/internal/domain"

// Канонические последовательности ключей. Ключи, которых нет в
// последовательности, идут следом в порядке вставки.
var (
	genericKeyOrder = []string{
		"id", "type", "date", "date_unixtime", "from", "from_id", "actor", "actor_id",
		"action", "discard_reason", "emoticon", "forwarded_from", "file", "file_name",
		"file_size", "thumbnail", "thumbnail_file_size", "media_type", "sticker_emoji",
		"mime_type", "duration_seconds", "photo", "photo_file_size", "width", "height",
		"reply_to_message_id", "location_information", "latitude", "longitude",
		"message_id", "text", "text_entities",
	}

	callKeyOrder = []string{
		"id", "type", "date", "date_unixtime", "from", "from_id", "actor", "actor_id",
		"action", "duration_seconds", "discard_reason", "text", "text_entities",
	}

	videoFileKeyOrder = []string{
		"id", "type", "date", "date_unixtime", "from", "from_id", "file", "file_name",
		"file_size", "thumbnail", "thumbnail_file_size", "media_type", "mime_type",
		"duration_seconds", "width", "height", "text", "text_entities",
	}
)

// keyOrderFor выбирает последовательность по виду записи.
func keyOrderFor(rec *domain.Record) []string {
	switch {
	case rec.String("action") == domain.ActionPhoneCall:
		return callKeyOrder
	case rec.String("media_type") == domain.MediaTypeVideoFile:
		return videoFileKeyOrder
	}
	return genericKeyOrder
}

// OrderRecord возвращает новую запись с каноническим порядком ключей.
// Множество ключей и значения не меняются, повторный вызов ничего не меняет.
func OrderRecord(rec *domain.Record) *domain.Record {
	if rec == nil {
		return nil
	}
	out := domain.NewRecord()
	for _, k := range keyOrderFor(rec) {
		if v, ok := rec.Get(k); ok {
			out.Set(k, v)
		}
	}
	for _, k := range rec.Keys() {
		if out.Has(k) {
			continue
		}
		v, _ := rec.Get(k)
		out.Set(k, v)
	}
	return out
}
