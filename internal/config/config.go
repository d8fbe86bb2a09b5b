package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yok-tottii/EzRec/internal/i18n"
	"github.com/yok-tottii/EzRec/internal/logger"
)

// EnvPrefix is the prefix of environment overrides, e.g. EZREC_STORAGE_MODE
const EnvPrefix = "EZREC"

// Config holds application configuration
type Config struct {
	Audio         AudioConfig   `mapstructure:"audio" yaml:"audio" json:"audio"`
	Storage       StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`
	MinRecordTime int           `mapstructure:"min_record_time" yaml:"min_record_time" json:"min_record_time"` // seconds
	Hotkey        HotkeyConfig  `mapstructure:"hotkey" yaml:"hotkey" json:"hotkey"`
	UILanguage    string        `mapstructure:"ui_language" yaml:"ui_language" json:"ui_language"` // "ja", "en" or "auto"
	Translations  string        `mapstructure:"ui_translations" yaml:"ui_translations,omitempty" json:"ui_translations"` // optional YAML/JSON text overrides
	Notifications bool          `mapstructure:"notifications" yaml:"notifications" json:"notifications"`
	Log           LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Server        ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	mu            sync.RWMutex
}

// AudioConfig selects the backend and devices
type AudioConfig struct {
	Backend        string `mapstructure:"backend" yaml:"backend" json:"backend"` // "portaudio", "malgo" or "dummy"
	CaptureDevice  int    `mapstructure:"capture_device" yaml:"capture_device" json:"capture_device"`
	PlaybackDevice int    `mapstructure:"playback_device" yaml:"playback_device" json:"playback_device"`
	ChunkSize      int    `mapstructure:"chunk_size" yaml:"chunk_size" json:"chunk_size"` // bytes
	Latency        string `mapstructure:"latency" yaml:"latency" json:"latency"`          // "low" or "high"
}

// StorageConfig holds where and how recordings are stored
type StorageConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"` // "byte" or "container"
}

// HotkeyConfig holds hotkey configuration
type HotkeyConfig struct {
	Ctrl  bool   `mapstructure:"ctrl" yaml:"ctrl" json:"ctrl"`
	Shift bool   `mapstructure:"shift" yaml:"shift" json:"shift"`
	Alt   bool   `mapstructure:"alt" yaml:"alt" json:"alt"`
	Cmd   bool   `mapstructure:"cmd" yaml:"cmd" json:"cmd"`
	Key   string `mapstructure:"key" yaml:"key" json:"key"`    // e.g., "R"
	Mode  string `mapstructure:"mode" yaml:"mode" json:"mode"` // "toggle" or "hold"
}

// LogConfig holds logger settings
type LogConfig struct {
	Level         string `mapstructure:"level" yaml:"level" json:"level"`
	Dir           string `mapstructure:"dir" yaml:"dir" json:"dir"` // empty means the per-user cache directory
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days" json:"retention_days"`
}

// ServerConfig holds the remote control listener settings
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port" json:"port"` // 0 picks a free port
}

// DefaultStorageDir returns ~/EzRec/recordings, or a relative path if the
// home directory is unknown
func DefaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("EzRec", "recordings")
	}
	return filepath.Join(home, "EzRec", "recordings")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:        "portaudio",
			CaptureDevice:  -1, // -1 means use system default device
			PlaybackDevice: -1,
			ChunkSize:      2048,
			Latency:        "low",
		},
		Storage: StorageConfig{
			Dir:  DefaultStorageDir(),
			Mode: "byte",
		},
		MinRecordTime: 3,
		Hotkey: HotkeyConfig{
			Ctrl: true,
			Alt:  true,
			Key:  "R",
			Mode: "toggle",
		},
		UILanguage:    "en",
		Notifications: true,
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 7,
		},
		Server: ServerConfig{
			Port: 18765,
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.capture_device", d.Audio.CaptureDevice)
	v.SetDefault("audio.playback_device", d.Audio.PlaybackDevice)
	v.SetDefault("audio.chunk_size", d.Audio.ChunkSize)
	v.SetDefault("audio.latency", d.Audio.Latency)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.mode", d.Storage.Mode)
	v.SetDefault("min_record_time", d.MinRecordTime)
	v.SetDefault("hotkey.ctrl", d.Hotkey.Ctrl)
	v.SetDefault("hotkey.shift", d.Hotkey.Shift)
	v.SetDefault("hotkey.alt", d.Hotkey.Alt)
	v.SetDefault("hotkey.cmd", d.Hotkey.Cmd)
	v.SetDefault("hotkey.key", d.Hotkey.Key)
	v.SetDefault("hotkey.mode", d.Hotkey.Mode)
	v.SetDefault("ui_language", d.UILanguage)
	v.SetDefault("ui_translations", d.Translations)
	v.SetDefault("notifications", d.Notifications)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.retention_days", d.Log.RetentionDays)
	v.SetDefault("server.port", d.Server.Port)
}

// Load loads configuration from the specified path. A missing file yields
// the defaults. EZREC_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Hotkey.Key == "" {
		config.Hotkey.Key = DefaultConfig().Hotkey.Key
	}

	return &config, nil
}

// Save saves configuration to the specified path as YAML
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "EzRec", "config.yaml")
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Update applies a partial update, as decoded from a JSON request body.
// Unknown keys are ignored; an invalid value aborts the update before
// anything is changed.
func (c *Config) Update(updates map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.cloneLocked()

	for key, value := range updates {
		switch key {
		case "storage_mode":
			v, ok := value.(string)
			if !ok || (v != "byte" && v != "container") {
				return fmt.Errorf("invalid storage_mode: %v", value)
			}
			next.Storage.Mode = v
		case "storage_dir":
			v, ok := value.(string)
			if !ok || v == "" {
				return fmt.Errorf("invalid storage_dir: %v", value)
			}
			next.Storage.Dir = v
		case "min_record_time":
			v, ok := asInt(value)
			if !ok || v < 0 || v > 300 {
				return fmt.Errorf("invalid min_record_time: %v", value)
			}
			next.MinRecordTime = v
		case "capture_device":
			v, ok := asInt(value)
			if !ok {
				return fmt.Errorf("invalid capture_device: %v", value)
			}
			next.Audio.CaptureDevice = v
		case "playback_device":
			v, ok := asInt(value)
			if !ok {
				return fmt.Errorf("invalid playback_device: %v", value)
			}
			next.Audio.PlaybackDevice = v
		case "ui_language":
			v, ok := value.(string)
			if !ok || !validLanguage(v) {
				return fmt.Errorf("invalid ui_language: %v", value)
			}
			next.UILanguage = v
		case "notifications":
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid notifications: %v", value)
			}
			next.Notifications = v
		case "log_level":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid log_level: %v", value)
			}
			next.Log.Level = v
		case "hotkey":
			v, ok := value.(map[string]interface{})
			if !ok {
				return fmt.Errorf("invalid hotkey: %v", value)
			}
			if ctrl, ok := v["ctrl"].(bool); ok {
				next.Hotkey.Ctrl = ctrl
			}
			if shift, ok := v["shift"].(bool); ok {
				next.Hotkey.Shift = shift
			}
			if alt, ok := v["alt"].(bool); ok {
				next.Hotkey.Alt = alt
			}
			if cmd, ok := v["cmd"].(bool); ok {
				next.Hotkey.Cmd = cmd
			}
			if key, ok := v["key"].(string); ok {
				next.Hotkey.Key = key
			}
			if mode, ok := v["mode"].(string); ok {
				next.Hotkey.Mode = mode
			}
		}
	}

	if err := next.validateLocked(); err != nil {
		return err
	}

	c.copyFrom(next)
	return nil
}

func (c *Config) cloneLocked() *Config {
	return &Config{
		Audio:         c.Audio,
		Storage:       c.Storage,
		MinRecordTime: c.MinRecordTime,
		Hotkey:        c.Hotkey,
		UILanguage:    c.UILanguage,
		Translations:  c.Translations,
		Notifications: c.Notifications,
		Log:           c.Log,
		Server:        c.Server,
	}
}

func (c *Config) copyFrom(o *Config) {
	c.Audio = o.Audio
	c.Storage = o.Storage
	c.MinRecordTime = o.MinRecordTime
	c.Hotkey = o.Hotkey
	c.UILanguage = o.UILanguage
	c.Translations = o.Translations
	c.Notifications = o.Notifications
	c.Log = o.Log
	c.Server = o.Server
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cloneLocked()
}

// MinDuration returns MinRecordTime as a duration
func (c *Config) MinDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.MinRecordTime) * time.Second
}

// GetStorageDir returns the expanded storage directory
func (c *Config) GetStorageDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ExpandPath(c.Storage.Dir)
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

func validLanguage(s string) bool {
	return s == i18n.Auto || i18n.ValidateLanguage(s)
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validateLocked()
}

func (c *Config) validateLocked() error {
	switch c.Audio.Backend {
	case "portaudio", "malgo", "dummy":
	default:
		return fmt.Errorf("invalid audio.backend: %s (must be 'portaudio', 'malgo' or 'dummy')", c.Audio.Backend)
	}

	if c.Audio.ChunkSize <= 0 || c.Audio.ChunkSize%2 != 0 {
		return fmt.Errorf("invalid audio.chunk_size: %d (must be a positive even number of bytes)", c.Audio.ChunkSize)
	}

	if c.Audio.Latency != "low" && c.Audio.Latency != "high" {
		return fmt.Errorf("invalid audio.latency: %s (must be 'low' or 'high')", c.Audio.Latency)
	}

	if c.Storage.Mode != "byte" && c.Storage.Mode != "container" {
		return fmt.Errorf("invalid storage.mode: %s (must be 'byte' or 'container')", c.Storage.Mode)
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir cannot be empty")
	}

	if c.MinRecordTime < 0 || c.MinRecordTime > 300 {
		return fmt.Errorf("invalid min_record_time: %d (must be between 0 and 300 seconds)", c.MinRecordTime)
	}

	if c.Hotkey.Mode != "toggle" && c.Hotkey.Mode != "hold" {
		return fmt.Errorf("invalid hotkey.mode: %s (must be 'toggle' or 'hold')", c.Hotkey.Mode)
	}

	if !validLanguage(c.UILanguage) {
		return fmt.Errorf("invalid ui_language: %s (must be 'ja', 'en' or 'auto')", c.UILanguage)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}

	if c.Log.RetentionDays < 0 {
		return fmt.Errorf("invalid log.retention_days: %d", c.Log.RetentionDays)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}

	return nil
}
