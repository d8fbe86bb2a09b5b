package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("Expected default config to be created")
	}

	if config.Audio.Backend != "portaudio" {
		t.Errorf("Expected backend 'portaudio', got '%s'", config.Audio.Backend)
	}

	if config.Audio.ChunkSize != 2048 {
		t.Errorf("Expected chunk size 2048, got %d", config.Audio.ChunkSize)
	}

	if config.Audio.CaptureDevice != -1 || config.Audio.PlaybackDevice != -1 {
		t.Error("Expected default devices to be -1")
	}

	if config.Storage.Mode != "byte" {
		t.Errorf("Expected storage mode 'byte', got '%s'", config.Storage.Mode)
	}

	if config.MinRecordTime != 3 {
		t.Errorf("Expected MinRecordTime 3, got %d", config.MinRecordTime)
	}

	if config.MinDuration() != 3*time.Second {
		t.Errorf("Expected MinDuration 3s, got %v", config.MinDuration())
	}

	if config.Server.Port != 18765 {
		t.Errorf("Expected server port 18765, got %d", config.Server.Port)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	config := DefaultConfig()
	config.Storage.Mode = "container"
	config.Storage.Dir = filepath.Join(tmpDir, "rec")
	config.Audio.Backend = "malgo"
	config.MinRecordTime = 5
	config.Hotkey.Key = "F9"

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal("Config file was not created")
	}
	if !strings.Contains(string(data), "mode: container") {
		t.Errorf("Expected YAML output, got:\n%s", data)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Storage.Mode != "container" {
		t.Errorf("Expected storage mode 'container', got '%s'", loaded.Storage.Mode)
	}
	if loaded.Storage.Dir != config.Storage.Dir {
		t.Errorf("Expected storage dir '%s', got '%s'", config.Storage.Dir, loaded.Storage.Dir)
	}
	if loaded.Audio.Backend != "malgo" {
		t.Errorf("Expected backend 'malgo', got '%s'", loaded.Audio.Backend)
	}
	if loaded.MinRecordTime != 5 {
		t.Errorf("Expected MinRecordTime 5, got %d", loaded.MinRecordTime)
	}
	if loaded.Hotkey.Key != "F9" {
		t.Errorf("Expected key 'F9', got '%s'", loaded.Hotkey.Key)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("storage:\n  mode: container\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Storage.Mode != "container" {
		t.Errorf("Expected storage mode 'container', got '%s'", loaded.Storage.Mode)
	}
	if loaded.Audio.ChunkSize != 2048 {
		t.Errorf("Expected default chunk size, got %d", loaded.Audio.ChunkSize)
	}
	if loaded.Storage.Dir == "" {
		t.Error("Expected default storage dir")
	}
}

func TestLoadNonexistent(t *testing.T) {
	config, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Expected no error when loading nonexistent file, got: %v", err)
	}

	defaultConfig := DefaultConfig()
	if config.Storage.Mode != defaultConfig.Storage.Mode {
		t.Errorf("Expected storage mode '%s', got '%s'", defaultConfig.Storage.Mode, config.Storage.Mode)
	}
	if config.Hotkey.Key != defaultConfig.Hotkey.Key {
		t.Errorf("Expected key '%s', got '%s'", defaultConfig.Hotkey.Key, config.Hotkey.Key)
	}
}

func TestLoadMalformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("storage: [unterminated\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EZREC_STORAGE_MODE", "container")
	t.Setenv("EZREC_MIN_RECORD_TIME", "10")
	t.Setenv("EZREC_AUDIO_BACKEND", "dummy")

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Storage.Mode != "container" {
		t.Errorf("Expected storage mode 'container', got '%s'", config.Storage.Mode)
	}
	if config.MinRecordTime != 10 {
		t.Errorf("Expected MinRecordTime 10, got %d", config.MinRecordTime)
	}
	if config.Audio.Backend != "dummy" {
		t.Errorf("Expected backend 'dummy', got '%s'", config.Audio.Backend)
	}
}

func TestUpdate(t *testing.T) {
	config := DefaultConfig()

	updates := map[string]interface{}{
		"storage_mode":    "container",
		"min_record_time": float64(5),
		"capture_device":  float64(1),
		"ui_language":     "ja",
		"notifications":   false,
		"hotkey":          map[string]interface{}{"shift": true, "key": "F9"},
		"unknown_key":     "ignored",
	}

	if err := config.Update(updates); err != nil {
		t.Fatalf("Failed to update config: %v", err)
	}

	if config.Storage.Mode != "container" {
		t.Errorf("Expected storage mode 'container', got '%s'", config.Storage.Mode)
	}
	if config.MinRecordTime != 5 {
		t.Errorf("Expected MinRecordTime 5, got %d", config.MinRecordTime)
	}
	if config.Audio.CaptureDevice != 1 {
		t.Errorf("Expected capture device 1, got %d", config.Audio.CaptureDevice)
	}
	if config.UILanguage != "ja" {
		t.Errorf("Expected UILanguage 'ja', got '%s'", config.UILanguage)
	}
	if config.Notifications {
		t.Error("Expected notifications to be disabled")
	}
	if !config.Hotkey.Shift || !config.Hotkey.Ctrl || config.Hotkey.Key != "F9" {
		t.Errorf("Unexpected hotkey %+v", config.Hotkey)
	}
}

func TestUpdateInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		updates map[string]interface{}
	}{
		{"storage_mode", map[string]interface{}{"storage_mode": "mp3"}},
		{"min_record_time negative", map[string]interface{}{"min_record_time": float64(-1)}},
		{"min_record_time fractional", map[string]interface{}{"min_record_time": 2.5}},
		{"ui_language", map[string]interface{}{"ui_language": "fr"}},
		{"log_level", map[string]interface{}{"log_level": "verbose"}},
		{"notifications type", map[string]interface{}{"notifications": "yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			if err := config.Update(tt.updates); err == nil {
				t.Errorf("Expected error for %v", tt.updates)
			}
		})
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	config := DefaultConfig()

	err := config.Update(map[string]interface{}{
		"storage_mode": "container",
		"ui_language":  "fr",
	})
	if err == nil {
		t.Fatal("Expected error")
	}

	if config.Storage.Mode != "byte" {
		t.Errorf("Failed update must not change storage mode, got '%s'", config.Storage.Mode)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"backend", func(c *Config) { c.Audio.Backend = "alsa" }},
		{"odd chunk", func(c *Config) { c.Audio.ChunkSize = 2047 }},
		{"zero chunk", func(c *Config) { c.Audio.ChunkSize = 0 }},
		{"latency", func(c *Config) { c.Audio.Latency = "medium" }},
		{"mode", func(c *Config) { c.Storage.Mode = "flac" }},
		{"empty dir", func(c *Config) { c.Storage.Dir = "" }},
		{"min time", func(c *Config) { c.MinRecordTime = 301 }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"language", func(c *Config) { c.UILanguage = "de" }},
		{"hotkey mode", func(c *Config) { c.Hotkey.Mode = "tap" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestUpdateAutoLanguage(t *testing.T) {
	config := DefaultConfig()

	if err := config.Update(map[string]interface{}{"ui_language": "auto"}); err != nil {
		t.Fatalf("Expected auto to be accepted: %v", err)
	}
	if config.UILanguage != "auto" {
		t.Errorf("Expected UILanguage 'auto', got '%s'", config.UILanguage)
	}
}

func TestClone(t *testing.T) {
	original := DefaultConfig()
	original.Storage.Mode = "container"
	original.Translations = "/tmp/ja.yaml"

	cloned := original.Clone()

	if cloned.Translations != original.Translations {
		t.Errorf("Expected translations '%s', got '%s'", original.Translations, cloned.Translations)
	}

	if cloned.Storage.Mode != original.Storage.Mode {
		t.Errorf("Expected storage mode '%s', got '%s'", original.Storage.Mode, cloned.Storage.Mode)
	}

	cloned.Storage.Mode = "byte"

	if original.Storage.Mode != "container" {
		t.Error("Modifying clone affected original")
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("Expected non-empty config path")
	}

	if !strings.HasSuffix(path, filepath.Join("EzRec", "config.yaml")) {
		t.Errorf("Expected path to end with EzRec/config.yaml, got '%s'", path)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := ExpandPath("~/EzRec/recordings")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "EzRec", "recordings") {
		t.Errorf("Unexpected expansion: %s", got)
	}

	if got, _ := ExpandPath(""); got != "" {
		t.Errorf("Expected empty path, got %s", got)
	}

	got, err = ExpandPath("relative")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Expected absolute path, got %s", got)
	}
}
