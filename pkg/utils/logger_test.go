package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, err := NewLogger(LoggerConfig{Level: "warn", OutputPath: path, Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Error("info entry written below warn level")
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"timestamp"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "chatty", OutputPath: "stderr", Format: "console"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Core().Enabled(0) || logger.Core().Enabled(-1) {
		t.Error("expected info level")
	}
}
