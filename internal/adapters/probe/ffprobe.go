package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// Селекторы потоков ffprobe.
const (
	videoStream = "v:0"
	audioStream = "a:0"
)

// CommandRunner запускает внешнюю команду и возвращает ее stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// streamMeta хранит метаданные первого потока, как их отдает ffprobe.
type streamMeta struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Duration string `json:"duration"`
}

type ffprobeOutput struct {
	Streams []streamMeta `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FFProbe оборачивает вызовы ffprobe. Отсутствие бинарника, ненулевой код
// возврата и некорректный вывод означают «нет результата».
type FFProbe struct {
	bin     string
	runner  CommandRunner
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFProbe находит ffprobe по заданному пути или в PATH.
func NewFFProbe(path string, runner CommandRunner, timeout time.Duration, logger *slog.Logger) *FFProbe {
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	bin := path
	if bin == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			bin = found
		}
	}
	return &FFProbe{bin: bin, runner: runner, timeout: timeout, logger: logger}
}

// Available сообщает, найден ли бинарник ffprobe.
func (f *FFProbe) Available() bool {
	return f != nil && f.bin != ""
}

// Stream читает ширину, высоту и длительность первого потока по селектору.
func (f *FFProbe) Stream(ctx context.Context, path, selector string) (streamMeta, bool) {
	out, ok := f.run(ctx,
		"-v", "error",
		"-select_streams", selector,
		"-show_entries", "stream=width,height,duration",
		"-of", "json",
		path,
	)
	if !ok || len(out.Streams) == 0 {
		return streamMeta{}, false
	}
	return out.Streams[0], true
}

// FormatDuration читает длительность контейнера в целых секундах.
func (f *FFProbe) FormatDuration(ctx context.Context, path string) (int, bool) {
	out, ok := f.run(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if !ok {
		return 0, false
	}
	return parseSeconds(out.Format.Duration)
}

func (f *FFProbe) run(ctx context.Context, args ...string) (*ffprobeOutput, bool) {
	if !f.Available() {
		return nil, false
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	raw, err := f.runner.Run(ctx, f.bin, args...)
	if err != nil {
		f.logger.Debug("ffprobe failed", "args", args, "error", err)
		return nil, false
	}

	var out ffprobeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		f.logger.Debug("ffprobe output is not valid json", "error", fmt.Errorf("unmarshal: %w", err))
		return nil, false
	}
	return &out, true
}

// parseSeconds разбирает длительность вида "3.520000" и отбрасывает дробную часть.
func parseSeconds(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return int(v), true
}

// duration возвращает длительность потока, если она есть.
func (m streamMeta) duration() (int, bool) {
	return parseSeconds(m.Duration)
}
