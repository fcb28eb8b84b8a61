package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestEndToEndWithRealBinary(t *testing.T) {
	dir := writeExport(t)
	binDir := t.TempDir()
	bin := filepath.Join(binDir, "converter")

	// Собираем бинарный файл
	buildCmd := exec.Command("go", "build", "-o", bin, "./cmd/converter")
	buildCmd.Dir = "../.."
	if err := buildCmd.Run(); err != nil {
		t.Skipf("Пропускаем сквозной тест: не удалось собрать бинарный файл: %v", err)
	}

	run := exec.Command(bin, "convert", dir, "--chat-id", "5", "--config", filepath.Join(binDir, "missing.yml"))
	out, err := run.CombinedOutput()
	if err != nil {
		t.Fatalf("Конвертация завершилась ошибкой: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), `Converted "Alice": 3 messages`) {
		t.Errorf("Неожиданный вывод: %s", out)
	}

	for _, name := range []string{"messages.json", "messages2.json", "result.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Файл %s не создан: %v", name, err)
		}
	}
}
