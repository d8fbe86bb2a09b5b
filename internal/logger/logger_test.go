package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Level != INFO {
		t.Errorf("Expected default level INFO, got %v", config.Level)
	}

	if config.RetentionDays != 7 {
		t.Errorf("Expected retention days 7, got %d", config.RetentionDays)
	}

	if config.LogDir == "" {
		t.Error("Expected non-empty log directory")
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.level.String()
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
		wantErr  bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"warning", WARN, false},
		{" error ", ERROR, false},
		{"", INFO, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if level != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, level)
			}
		})
	}
}

func readLog(t *testing.T, dir string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	logger, err := New(Config{LogDir: tempDir, Level: INFO, RetentionDays: 7})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logPath := filepath.Join(tempDir, FileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Errorf("Log file was not created: %s", logPath)
	}

	if logger.Path() != logPath {
		t.Errorf("Expected path %s, got %s", logPath, logger.Path())
	}
}

func TestLogging(t *testing.T) {
	tempDir := t.TempDir()

	logger, err := New(Config{LogDir: tempDir, Level: DEBUG, RetentionDays: 7})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Debug("Debug message %d", 1)
	logger.Info("Info message")
	logger.Warn("Warn message")
	logger.Error("Error message: %v", os.ErrNotExist)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	logContent := readLog(t, tempDir)

	for _, want := range []string{
		"Debug message 1", "Info message", "Warn message", "Error message: file does not exist",
		"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]",
	} {
		if !strings.Contains(logContent, want) {
			t.Errorf("%q not found in log", want)
		}
	}
}

func TestLogLevel(t *testing.T) {
	tempDir := t.TempDir()

	logger, err := New(Config{LogDir: tempDir, Level: WARN, RetentionDays: 7})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warn message")
	logger.Error("Error message")
	logger.Close()

	logContent := readLog(t, tempDir)

	// DEBUG and INFO should not be logged
	if strings.Contains(logContent, "Debug message") {
		t.Error("Debug message should not be logged at WARN level")
	}
	if strings.Contains(logContent, "Info message") {
		t.Error("Info message should not be logged at WARN level")
	}

	if !strings.Contains(logContent, "Warn message") {
		t.Error("Warn message not found in log")
	}
	if !strings.Contains(logContent, "Error message") {
		t.Error("Error message not found in log")
	}
}

func TestSetLevel(t *testing.T) {
	tempDir := t.TempDir()

	logger, err := New(Config{LogDir: tempDir, Level: INFO, RetentionDays: 7})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.GetLevel() != INFO {
		t.Errorf("Expected initial level INFO, got %v", logger.GetLevel())
	}

	logger.SetLevel(DEBUG)

	if logger.GetLevel() != DEBUG {
		t.Errorf("Expected level DEBUG, got %v", logger.GetLevel())
	}

	// Children share the level
	child := logger.With("session", "abc")
	logger.SetLevel(ERROR)
	if child.GetLevel() != ERROR {
		t.Errorf("Expected child level ERROR, got %v", child.GetLevel())
	}
}

func TestWithAddsContext(t *testing.T) {
	tempDir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Config{LogDir: tempDir, Level: INFO, RetentionDays: 7, Console: &console})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	child := logger.With("session", "1234")
	child.Info("recording started")

	// Closing a child must not close the shared file
	if err := child.Close(); err != nil {
		t.Errorf("Child Close returned error: %v", err)
	}
	logger.Info("after child close")
	logger.Close()

	logContent := readLog(t, tempDir)
	if !strings.Contains(logContent, "recording started") || !strings.Contains(logContent, "1234") {
		t.Errorf("Expected session context in log, got: %s", logContent)
	}
	if !strings.Contains(logContent, "after child close") {
		t.Error("Parent logger stopped writing after child Close")
	}
	if !strings.Contains(console.String(), "recording started") {
		t.Error("Console mirror did not receive the line")
	}
}

func TestNop(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	logger.With("k", "v").Error("discarded")

	if logger.Path() != "" {
		t.Errorf("Expected empty path, got %q", logger.Path())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}
