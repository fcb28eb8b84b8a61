package domain

// MediaInfo содержит метаданные вложения, полученные при анализе файла.
// Живет только до слияния с записью сообщения.
type MediaInfo struct {
	File              string
	FileName          string
	FileSize          int64
	Thumbnail         string
	ThumbnailFileSize int64

	// Photo заполняется только для фотографий из папки photos;
	// в этом случае остальные файловые поля не выводятся.
	Photo         string
	PhotoFileSize int64

	MediaType       string
	StickerEmoji    string
	MimeType        string
	Width           *int
	Height          *int
	DurationSeconds *int
}

// IntPtr возвращает указатель на копию значения.
func IntPtr(v int) *int {
	return &v
}

// Fields возвращает поля для слияния с записью сообщения.
func (m *MediaInfo) Fields() []Field {
	if m == nil {
		return nil
	}
	if m.Photo != "" {
		fields := []Field{
			{Key: "photo", Value: m.Photo},
			{Key: "photo_file_size", Value: m.PhotoFileSize},
		}
		return appendSize(fields, m)
	}

	fields := []Field{{Key: "file", Value: m.File}}
	if m.FileName != "" {
		fields = append(fields, Field{Key: "file_name", Value: m.FileName})
	}
	fields = append(fields, Field{Key: "file_size", Value: m.FileSize})
	if m.Thumbnail != "" {
		fields = append(fields,
			Field{Key: "thumbnail", Value: m.Thumbnail},
			Field{Key: "thumbnail_file_size", Value: m.ThumbnailFileSize},
		)
	}
	if m.MediaType != "" {
		fields = append(fields, Field{Key: "media_type", Value: m.MediaType})
	}
	if m.StickerEmoji != "" {
		fields = append(fields, Field{Key: "sticker_emoji", Value: m.StickerEmoji})
	}
	if m.MimeType != "" {
		fields = append(fields, Field{Key: "mime_type", Value: m.MimeType})
	}
	if m.DurationSeconds != nil {
		fields = append(fields, Field{Key: "duration_seconds", Value: *m.DurationSeconds})
	}
	return appendSize(fields, m)
}

func appendSize(fields []Field, m *MediaInfo) []Field {
	if m.Width != nil {
		fields = append(fields, Field{Key: "width", Value: *m.Width})
	}
	if m.Height != nil {
		fields = append(fields, Field{Key: "height", Value: *m.Height})
	}
	return fields
}
