package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marksheet/internal/config"
)

func TestNewWritesJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("sheet finalized")
	logger.Sync() //nolint:errcheck

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"sheet finalized"`) {
		t.Fatalf("log = %s", content)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("debug entry written at info level: %s", content)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("caller written at info level: %s", content)
	}
}

func TestNewRejectsUnknownOptions(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := New(Options{Level: "verbose"}); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	dataDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Log.Format = "json"

	logger, err := NewFromConfig(cfg, dataDir)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("hello")
	logger.Sync() //nolint:errcheck

	if _, err := os.Stat(filepath.Join(dataDir, "logs", "marksheet.log")); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}
