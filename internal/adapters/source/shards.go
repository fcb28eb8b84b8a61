package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrNoShards возвращается, если в каталоге нет файлов messages*.html.
var ErrNoShards = errors.New("no message shards found")

// Номер без ведущих нулей. messages0.html и messages1.html экспорт не создает.
var shardName = regexp.MustCompile(`^messages([1-9]\d*)?\.html$`)

// Shard описывает один HTML-файл экспорта.
type Shard struct {
	// Index: номер шарда: 1 для messages.html, N для messagesN.html.
	Index int
	Path  string
}

// OutputPath возвращает путь JSON-файла рядом с HTML.
func (s Shard) OutputPath() string {
	return strings.TrimSuffix(s.Path, filepath.Ext(s.Path)) + ".json"
}

// Source возвращает источник данных шарда.
func (s Shard) Source() *FileSource {
	return &FileSource{filePath: s.Path}
}

// DiscoverShards находит шарды в каталоге экспорта и сортирует их по номеру:
// messages.html, messages2.html, ..., messages10.html.
func DiscoverShards(dir string) ([]Shard, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export dir %s: %w", dir, err)
	}

	var shards []Shard
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := shardName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx := 1
		if m[1] != "" {
			if idx, err = strconv.Atoi(m[1]); err != nil || idx < 2 {
				continue
			}
		}
		shards = append(shards, Shard{Index: idx, Path: filepath.Join(dir, e.Name())})
	}

	if len(shards) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoShards, dir)
	}

	sort.SliceStable(shards, func(i, j int) bool { return shards[i].Index < shards[j].Index })
	return shards, nil
}
