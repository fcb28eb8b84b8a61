package probe

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/abema/go-mp4"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// clipMeta хранит то, что удалось прочитать из контейнера без внешних утилит.
type clipMeta struct {
	Duration int
	Width    int
	Height   int
}

// isoContainers перечисляет расширения, которые читаются как ISO BMFF.
var isoContainers = map[string]bool{
	".mp4": true,
	".m4a": true,
	".mov": true,
}

// openClip читает длительность и размер кадра из заголовков ISO BMFF.
// Нулевая длительность в mvhd считается отсутствием данных.
func openClip(path, ext string) (clipMeta, bool) {
	if !isoContainers[ext] {
		return clipMeta{}, false
	}

	f, err := os.Open(path)
	if err != nil {
		return clipMeta{}, false
	}
	defer f.Close()

	info, err := mp4.Probe(f)
	if err != nil || info.Timescale == 0 || info.Duration == 0 {
		return clipMeta{}, false
	}

	meta := clipMeta{Duration: int(info.Duration / uint64(info.Timescale))}
	for _, track := range info.Tracks {
		if track.AVC != nil {
			meta.Width = int(track.AVC.Width)
			meta.Height = int(track.AVC.Height)
			break
		}
	}
	return meta, true
}

// imageSize читает размеры изображения из заголовка файла.
func imageSize(path string) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
