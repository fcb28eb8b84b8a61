// Package probe извлекает метаданные вложений экспорта: размеры,
// длительность и MIME-тип.
package probe

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/ports"
)

// Размеры, которые задаются схемой, а не содержимым файла.
const (
	animatedStickerSize = 512
	roundVideoSize      = 400
)

// DefaultStickerEmoji подставляется в sticker_emoji: в HTML-экспорте
// эмодзи стикера отсутствует.
const DefaultStickerEmoji = "❤️"

// Prober реализует ports.MediaProber.
type Prober struct {
	exportDir    string
	ffprobe      *FFProbe
	stickerEmoji string
	logger       *slog.Logger
}

// Option настраивает Prober.
type Option func(*options)

type options struct {
	ffprobePath  string
	runner       CommandRunner
	timeout      time.Duration
	stickerEmoji string
	logger       *slog.Logger
}

// WithFFProbePath задает путь к ffprobe. По умолчанию ищется в PATH.
func WithFFProbePath(path string) Option {
	return func(o *options) { o.ffprobePath = path }
}

// WithCommandRunner подменяет запуск внешних команд.
func WithCommandRunner(r CommandRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithTimeout ограничивает время одного вызова ffprobe.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithStickerEmoji задает эмодзи-заглушку для стикеров.
func WithStickerEmoji(emoji string) Option {
	return func(o *options) { o.stickerEmoji = emoji }
}

// WithLogger задает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New создает Prober для каталога экспорта.
func New(exportDir string, opts ...Option) ports.MediaProber {
	o := &options{stickerEmoji: DefaultStickerEmoji, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return &Prober{
		exportDir:    exportDir,
		ffprobe:      NewFFProbe(o.ffprobePath, o.runner, o.timeout, o.logger),
		stickerEmoji: o.stickerEmoji,
		logger:       o.logger,
	}
}

// ExportDir возвращает корень экспорта.
func (p *Prober) ExportDir() string {
	return p.exportDir
}

// Probe возвращает метаданные файла или nil, если файла нет.
func (p *Prober) Probe(ctx context.Context, path string) *domain.MediaInfo {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return nil
	}

	rel := p.relative(path)
	ext := strings.ToLower(filepath.Ext(path))
	name := filepath.Base(path)

	if strings.HasPrefix(rel, "photos/") && isImage(ext) {
		return p.photo(path, rel, st.Size())
	}

	info := &domain.MediaInfo{File: rel, FileName: name, FileSize: st.Size()}
	if thumb, size, ok := findThumbnail(path); ok {
		info.Thumbnail = p.relative(thumb)
		info.ThumbnailFileSize = size
	}

	switch {
	case isImage(ext):
		setImageSize(info, path)
		info.MimeType = mediaTypeOr(ext, "image/jpeg")

	case ext == ".webp" && strings.Contains(rel, "stickers"):
		setImageSize(info, path)
		info.MimeType = mediaTypeOr(ext, "image/webp")
		info.MediaType = domain.MediaTypeSticker
		info.StickerEmoji = p.stickerEmoji

	case ext == ".tgs":
		info.MimeType = mimeAnimatedSticker
		info.MediaType = domain.MediaTypeSticker
		info.StickerEmoji = p.stickerEmoji
		info.Width = domain.IntPtr(animatedStickerSize)
		info.Height = domain.IntPtr(animatedStickerSize)

	case ext == ".webm" && (strings.Contains(rel, "stickers") || strings.Contains(strings.ToLower(name), "sticker")):
		info.MimeType = mimeVideoSticker
		info.MediaType = domain.MediaTypeSticker
		info.StickerEmoji = p.stickerEmoji
		p.probeStream(ctx, info, path, videoStream)

	case ext == ".gif":
		setImageSize(info, path)
		if meta, ok := p.ffprobe.Stream(ctx, path, videoStream); ok {
			if d, ok := meta.duration(); ok {
				info.DurationSeconds = domain.IntPtr(d)
			}
		}
		info.MimeType = mediaTypeOr(ext, "image/gif")
		info.MediaType = domain.MediaTypeAnimation

	case isVideo(ext):
		p.probeVideo(ctx, info, path, rel, ext)

	case isAudio(ext):
		p.probeAudio(ctx, info, path, rel, ext)

	case ext == ".zip" && strings.HasSuffix(strings.ToLower(name), ".fb2.zip"):
		info.MimeType = mimeFB2Archive
	}

	if info.MimeType == "" {
		info.MimeType = fallbackMIME(path, ext)
	}
	return info
}

// photo строит минимальную запись для фотографий из папки photos.
func (p *Prober) photo(path, rel string, size int64) *domain.MediaInfo {
	info := &domain.MediaInfo{Photo: rel, PhotoFileSize: size}
	setImageSize(info, path)
	return info
}

func (p *Prober) probeVideo(ctx context.Context, info *domain.MediaInfo, path, rel, ext string) {
	// Файлы из папки files считаются непрозрачными документами.
	if !strings.HasPrefix(rel, "files/") {
		if clip, ok := openClip(path, ext); ok {
			info.DurationSeconds = domain.IntPtr(clip.Duration)
			if clip.Width > 0 && clip.Height > 0 {
				info.Width = domain.IntPtr(clip.Width)
				info.Height = domain.IntPtr(clip.Height)
			}
		}
		if info.DurationSeconds == nil || info.Width == nil {
			p.probeStream(ctx, info, path, videoStream)
		}
	}

	switch {
	case strings.Contains(rel, "round_video_messages"):
		info.MediaType = domain.MediaTypeVideoMessage
		info.Width = domain.IntPtr(roundVideoSize)
		info.Height = domain.IntPtr(roundVideoSize)
	case strings.Contains(rel, "video_files"):
		info.MediaType = domain.MediaTypeVideoFile
	default:
		info.MediaType = domain.MediaTypeVideo
	}

	info.MimeType = mediaTypeOr(ext, "video/"+strings.TrimPrefix(ext, "."))
}

func (p *Prober) probeAudio(ctx context.Context, info *domain.MediaInfo, path, rel, ext string) {
	if d, ok := p.audioDuration(ctx, path, ext); ok {
		info.DurationSeconds = domain.IntPtr(d)
	}

	info.MimeType = mediaTypeOr(ext, "audio/"+strings.TrimPrefix(ext, "."))
	if strings.Contains(rel, "voice") {
		info.MediaType = domain.MediaTypeVoiceMessage
	} else {
		info.MediaType = domain.MediaTypeAudioFile
	}
	// Голосовые .ogg в нативном экспорте идут без file_name.
	if ext == ".ogg" {
		info.FileName = ""
	}
}

// audioDuration: чтение контейнера, поток ffprobe, длительность формата.
func (p *Prober) audioDuration(ctx context.Context, path, ext string) (int, bool) {
	if clip, ok := openClip(path, ext); ok {
		return clip.Duration, true
	}
	if meta, ok := p.ffprobe.Stream(ctx, path, audioStream); ok {
		if d, ok := meta.duration(); ok {
			return d, true
		}
	}
	return p.ffprobe.FormatDuration(ctx, path)
}

// probeStream заполняет отсутствующие размеры и длительность через ffprobe.
func (p *Prober) probeStream(ctx context.Context, info *domain.MediaInfo, path, selector string) {
	if meta, ok := p.ffprobe.Stream(ctx, path, selector); ok {
		if meta.Width > 0 && info.Width == nil {
			info.Width = domain.IntPtr(meta.Width)
		}
		if meta.Height > 0 && info.Height == nil {
			info.Height = domain.IntPtr(meta.Height)
		}
		if d, ok := meta.duration(); ok && info.DurationSeconds == nil {
			info.DurationSeconds = domain.IntPtr(d)
		}
	}
	if info.DurationSeconds == nil {
		if d, ok := p.ffprobe.FormatDuration(ctx, path); ok {
			info.DurationSeconds = domain.IntPtr(d)
		}
	}
}

// relative возвращает путь относительно корня экспорта в виде с прямыми слешами.
func (p *Prober) relative(path string) string {
	rel, err := filepath.Rel(p.exportDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func setImageSize(info *domain.MediaInfo, path string) {
	if w, h, ok := imageSize(path); ok {
		info.Width = domain.IntPtr(w)
		info.Height = domain.IntPtr(h)
	}
}

// findThumbnail ищет файл вида <имя>_thumb* рядом с вложением.
func findThumbnail(path string) (string, int64, bool) {
	pattern := filepath.Join(filepath.Dir(path), escapeGlob(filepath.Base(path))+"_thumb*")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", 0, false
	}
	st, err := os.Stat(matches[0])
	if err != nil {
		return "", 0, false
	}
	return matches[0], st.Size(), true
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

func isImage(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}

func isVideo(ext string) bool {
	switch ext {
	case ".mp4", ".webm", ".avi", ".mov":
		return true
	}
	return false
}

func isAudio(ext string) bool {
	switch ext {
	case ".m4a", ".mp3", ".ogg":
		return true
	}
	return false
}
