package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSetup_WritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := Setup("debug", dir, 30, &console)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("rule evaluated", "rule", "count")

	if !strings.Contains(console.String(), "rule evaluated") {
		t.Errorf("console output missing message: %q", console.String())
	}

	name := filePrefix + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "rule=count") {
		t.Errorf("log file missing attribute: %q", data)
	}
}

func TestSetup_PrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, filePrefix+"2001-01-01.log")
	other := filepath.Join(dir, "unrelated.log")
	for _, p := range []string{old, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := Setup("info", dir, 7, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected old log file to be pruned")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated file should be kept")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
