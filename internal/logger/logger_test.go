package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "logs")
	var stderr bytes.Buffer
	l, err := New(Config{Debug: true, LogDir: dir, Stderr: &stderr})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.With("run", "abc").Info("cascade finished", "days", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "kcaldebt.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"cascade finished", "days=3", "run=abc"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in log file, got %q", want, string(data))
		}
	}
	if !strings.Contains(stderr.String(), "cascade finished") {
		t.Fatalf("expected debug mode to mirror to stderr")
	}
}

func TestNonDebugSkipsStderrAndDebugLines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var stderr bytes.Buffer
	l, err := New(Config{LogDir: dir, Stderr: &stderr})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Debug("hidden")
	l.Warn("archive skipped")
	_ = l.Close()

	data, err := os.ReadFile(filepath.Join(dir, "kcaldebt.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("debug line should be filtered")
	}
	if !strings.Contains(string(data), "archive skipped") {
		t.Fatalf("expected warn line in log file")
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected no stderr output outside debug mode")
	}
}
