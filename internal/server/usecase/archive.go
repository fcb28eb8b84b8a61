package usecase

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeArchivePath возвращается для записей архива, выходящих за каталог распаковки.
var ErrUnsafeArchivePath = errors.New("archive entry escapes target dir")

// ErrExportRootNotFound возвращается, если в архиве нет messages.html.
var ErrExportRootNotFound = errors.New("messages.html not found in archive")

// extractArchive распаковывает zip-архив в dir.
func extractArchive(archivePath, dir string) error {
	r, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if r != nil {
			r.Close()
		}
		return fmt.Errorf("%w: %v", ErrUnsafeArchivePath, err)
	}
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractEntry(f, dir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(f.Name))
	if target != dir && !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrUnsafeArchivePath, f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return dst.Close()
}

// findExportRoot ищет самый неглубокий каталог с messages.html: архив
// может содержать как сам каталог экспорта, так и его содержимое.
func findExportRoot(dir string) (string, error) {
	var (
		root  string
		depth = -1
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "messages.html" {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		if n := strings.Count(rel, string(os.PathSeparator)); depth < 0 || n < depth {
			root, depth = filepath.Dir(path), n
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan extracted archive: %w", err)
	}
	if root == "" {
		return "", ErrExportRootNotFound
	}
	return root, nil
}
