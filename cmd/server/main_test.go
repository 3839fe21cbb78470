package main

import (
	"testing"

	"trackserver/internal/config"
)

func TestApplyFlags(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.Flags().Parse([]string{"--port", "8081", "--source", "udp://:9000", "--autostart=false", "--catalog"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg := &config.Config{Host: "0.0.0.0", Port: 5000, StreamSource: "0", AutoStart: true, SaveDetections: true, ModelPath: "model.onnx"}
	applyFlags(cmd.Flags(), cfg)

	if cfg.Port != 8081 || cfg.StreamSource != "udp://:9000" || cfg.AutoStart || !cfg.EnableCatalog {
		t.Errorf("Flags not applied: %+v", cfg)
	}
	if cfg.Host != "0.0.0.0" || cfg.ModelPath != "model.onnx" || !cfg.SaveDetections {
		t.Errorf("Unset flags must keep configured values: %+v", cfg)
	}
}
