package probe

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultMIME = "application/octet-stream"

// Фиксированные типы вложений особых видов.
const (
	mimeAnimatedSticker = "application/x-tgsticker"
	mimeVideoSticker    = "video/webm"
	mimeFB2Archive      = "application/x-zip-compressed-fb2"
)

// mediaMIME содержит типы для расширений, которые разбираются по видам медиа.
var mediaMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
}

// documentMIME содержит типы документов, которые проверяются до общих таблиц.
var documentMIME = map[string]string{
	".epub": "application/epub+zip",
	".repf": defaultMIME,
	".exe":  defaultMIME,
	".bin":  defaultMIME,
	".zip":  "application/zip",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".doc":  "application/msword",
	".pdf":  "application/pdf",
}

// guessByExtension определяет тип только по расширению.
func guessByExtension(ext string) (string, bool) {
	if t, ok := mediaMIME[ext]; ok {
		return t, true
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return stripParams(t), true
	}
	return "", false
}

// mediaTypeOr возвращает тип по расширению или заданное значение.
func mediaTypeOr(ext, fallback string) string {
	if t, ok := guessByExtension(ext); ok {
		return t
	}
	return fallback
}

// fallbackMIME проходит по уровням: таблица документов, таблица расширений,
// анализ содержимого, тип по умолчанию.
func fallbackMIME(path, ext string) string {
	if t, ok := documentMIME[ext]; ok {
		return t
	}
	if t, ok := guessByExtension(ext); ok {
		return t
	}
	if t, ok := sniffMIME(path); ok {
		return t
	}
	return defaultMIME
}

// sniffMIME определяет тип по содержимому файла.
func sniffMIME(path string) (string, bool) {
	m, err := mimetype.DetectFile(path)
	if err != nil || m == nil {
		return "", false
	}
	return stripParams(m.String()), true
}

func stripParams(t string) string {
	base, _, _ := strings.Cut(t, ";")
	return strings.TrimSpace(base)
}
