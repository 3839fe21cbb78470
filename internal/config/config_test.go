package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STREAM_SOURCE", "CONFIDENCE_THRESHOLD", "IOU_THRESHOLD", "SAVE_DETECTIONS", "RECONNECT_DELAY_MS"} {
		t.Setenv(key, "")
	}

	cfg := fromEnv()

	if cfg.Port != 5000 {
		t.Errorf("Expected default port 5000, got %d", cfg.Port)
	}
	if cfg.StreamSource != "0" {
		t.Errorf("Expected default source '0', got %q", cfg.StreamSource)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("Expected confidence threshold 0.5, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.IOUThreshold != 0.45 {
		t.Errorf("Expected IOU threshold 0.45, got %v", cfg.IOUThreshold)
	}
	if !cfg.SaveDetections {
		t.Error("Expected detections to be saved by default")
	}
	if cfg.ReconnectDelay != 2*time.Second {
		t.Errorf("Expected reconnect delay 2s, got %v", cfg.ReconnectDelay)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STREAM_SOURCE", "rtsp://camera/stream")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.7")
	t.Setenv("SAVE_DETECTIONS", "False")
	t.Setenv("FRAME_WIDTH", "not-a-number")

	cfg := fromEnv()

	if cfg.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Port)
	}
	if cfg.StreamSource != "rtsp://camera/stream" {
		t.Errorf("Unexpected source %q", cfg.StreamSource)
	}
	if cfg.ConfidenceThreshold != 0.7 {
		t.Errorf("Expected 0.7, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.SaveDetections {
		t.Error("Expected SAVE_DETECTIONS=False to disable persistence")
	}
	if cfg.FrameWidth != 640 {
		t.Errorf("Invalid int should fall back to default, got %d", cfg.FrameWidth)
	}
}

func TestLoadFile_ReadsDotEnv(t *testing.T) {
	t.Setenv("IOU_THRESHOLD", "")
	os.Unsetenv("IOU_THRESHOLD")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("IOU_THRESHOLD=0.3\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	defer os.Unsetenv("IOU_THRESHOLD")

	cfg := LoadFile(path)
	if cfg.IOUThreshold != 0.3 {
		t.Errorf("Expected IOU threshold from env file, got %v", cfg.IOUThreshold)
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 9000}
	if got := cfg.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", got)
	}
}
