package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"trackserver/internal/config"
)

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	l := New(base).With(map[string]interface{}{"source": "0"})
	l.Warning("reconnect attempt %d", 2)

	out := buf.String()
	if !strings.Contains(out, "level=warning") {
		t.Errorf("Expected warning level, got: %s", out)
	}
	if !strings.Contains(out, "reconnect attempt 2") {
		t.Errorf("Expected formatted message, got: %s", out)
	}
	if !strings.Contains(out, "source=0") {
		t.Errorf("Expected field in output, got: %s", out)
	}
}

func TestLogger_FileAndClean(t *testing.T) {
	cfg := &config.Config{LogDirectory: t.TempDir(), LogLevel: "info"}
	l := NewLogger(cfg)
	defer l.Close()

	for i := 0; i < 50; i++ {
		l.Error("disk full %d", i)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "disk full") {
		t.Errorf("Expected entry in log file, got: %s", data)
	}

	l.CleanLogs()
	data, err = os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "disk full") {
		t.Error("Expected log file to be truncated")
	}

	l.Info("after clean")
	data, err = os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if n := bytes.Count(data, []byte{0}); n != 0 {
		t.Errorf("Log file has %d NUL bytes after CleanLogs (size %d)", n, len(data))
	}
	if !strings.Contains(string(data), "after clean") || strings.Contains(string(data), "disk full") {
		t.Errorf("Unexpected log content after clean: %s", data)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing %s", "here")
	if l.Path() != "" {
		t.Errorf("Discard logger should have no file, got %q", l.Path())
	}
}
