package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestPhoneMaskerHandler_Handle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "mask phone in message",
			input:    "contact parsed: +1 555 0100",
			expected: "contact parsed: +***00",
		},
		{
			name:     "no phone in message",
			input:    "converted 2023-03-15 shard messages2.html",
			expected: "converted 2023-03-15 shard messages2.html",
		},
		{
			name:     "multiple phones in message",
			input:    "a=+7 (912) 345-67-89, b=+441234567890",
			expected: "a=+***89, b=+***90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // параллельное выполнение для выявления гонок
			var buf bytes.Buffer
			logger := slog.New(NewPhoneMaskerHandler(slog.NewJSONHandler(&buf, nil)))

			logger.Info(tt.input)

			output := buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("expected output to contain %q, got %q", tt.expected, output)
			}
		})
	}
}

func TestPhoneMaskerHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPhoneMaskerHandler(slog.NewJSONHandler(&buf, nil)))

	phone := "+1 555 0100"
	logger = logger.With(slog.String("phone", phone))
	logger.Info("message with phone in attr",
		slog.Group("contact", slog.String("number", phone)),
		slog.Any("error", errors.New("bad card "+phone)),
	)

	output := buf.String()
	if strings.Contains(output, phone) {
		t.Errorf("expected output to not contain original phone %q, but it did: %s", phone, output)
	}
	if strings.Count(output, "+***00") != 3 {
		t.Errorf("expected three masked phones, got %q", output)
	}
}

func TestMaskPhones(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "+1 555 0100", expected: "+***00"},
		{input: "No phone here", expected: "No phone here"},
		{input: "id 1678879321", expected: "id 1678879321"},
		{input: "+12", expected: "+12"},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			result := maskPhones(tt.input)
			if result != tt.expected {
				t.Errorf("maskPhones(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "debug", "json").Debug("hello", "phone", "+1 555 0100")
		if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "+***00") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "info", "text").Info("hello")
		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("auto on non-terminal is json", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "info", "auto").Info("hello")
		if !strings.HasPrefix(buf.String(), "{") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "warn", "json").Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})
}
