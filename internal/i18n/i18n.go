// Package i18n holds the recorder's user-facing text in English and
// Japanese
package i18n

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Language represents a supported language
type Language string

const (
	// Japanese language
	LanguageJapanese Language = "ja"
	// English language
	LanguageEnglish Language = "en"

	// Auto is the setting that picks the language from the locale
	Auto = "auto"
)

// Resolve turns a ui_language setting into a language. "auto" and ""
// follow the POSIX locale.
func Resolve(setting string) Language {
	if setting == Auto || setting == "" {
		return DetectSystemLanguage()
	}
	return Language(setting)
}

// Translator holds UI text for recorder states and events. Missing keys
// fall back to English, then to the key itself.
type Translator struct {
	mu       sync.RWMutex
	current  Language
	catalogs map[Language]map[string]string
}

// NewDefaultTranslator creates a translator preloaded with the built-in
// text
func NewDefaultTranslator(language Language) *Translator {
	t := NewTranslator(language)
	for lang, texts := range builtin {
		t.catalogs[lang] = maps.Clone(texts)
	}
	return t
}

// NewTranslator creates an empty translator
func NewTranslator(language Language) *Translator {
	return &Translator{
		current:  language,
		catalogs: make(map[Language]map[string]string),
	}
}

// Merge adds texts to a language, replacing keys that already exist
func (t *Translator) Merge(language Language, texts map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	catalog, ok := t.catalogs[language]
	if !ok {
		catalog = make(map[string]string, len(texts))
		t.catalogs[language] = catalog
	}
	maps.Copy(catalog, texts)
}

// LoadTranslations merges a JSON object of key/text pairs
func (t *Translator) LoadTranslations(language Language, data []byte) error {
	var texts map[string]string
	if err := json.Unmarshal(data, &texts); err != nil {
		return fmt.Errorf("failed to unmarshal translations: %w", err)
	}
	t.Merge(language, texts)
	return nil
}

// LoadTranslationsFromFile merges a JSON or YAML file, chosen by
// extension. Keys the file leaves out keep their built-in text.
func (t *Translator) LoadTranslationsFromFile(language Language, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read translation file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		var texts map[string]string
		if err := yaml.Unmarshal(data, &texts); err != nil {
			return fmt.Errorf("failed to unmarshal translations: %w", err)
		}
		t.Merge(language, texts)
		return nil
	default:
		return t.LoadTranslations(language, data)
	}
}

// SetLanguage switches the language used by Translate
func (t *Translator) SetLanguage(language Language) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = language
}

// Language returns the current language
func (t *Translator) Language() Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

func (t *Translator) lookup(language Language, key string) (string, bool) {
	text, ok := t.catalogs[language][key]
	return text, ok
}

// Translate returns the text for key in the current language
func (t *Translator) Translate(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if text, ok := t.lookup(t.current, key); ok {
		return text
	}
	if text, ok := t.lookup(LanguageEnglish, key); ok {
		return text
	}
	return key
}

// TranslateWithFormat translates key and fills {name} placeholders
func (t *Translator) TranslateWithFormat(key string, params map[string]string) string {
	text := t.Translate(key)
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// ValidateLanguage reports whether language has built-in text
func ValidateLanguage(language string) bool {
	_, ok := builtin[Language(language)]
	return ok
}

// DetectSystemLanguage picks Japanese when the POSIX locale says so and
// English otherwise
func DetectSystemLanguage() Language {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(env); v != "" {
			if strings.HasPrefix(strings.ToLower(v), "ja") {
				return LanguageJapanese
			}
			return LanguageEnglish
		}
	}
	return LanguageEnglish
}

// Builtin returns a copy of the shipped text for a language, or nil
func Builtin(language Language) map[string]string {
	return maps.Clone(builtin[language])
}

var builtin = map[Language]map[string]string{
	LanguageEnglish: {
		"app.name": "EzRec",

		"button.record":  "Record",
		"button.stop":    "Stop",
		"button.play":    "Play",
		"button.playing": "Playing...",

		"status.idle":      "Idle",
		"status.starting":  "Starting",
		"status.recording": "Recording",
		"status.playing":   "Playing",
		"status.stopping":  "Stopping",
		"status.failed":    "Failed",

		"event.recording_started":   "Recording started",
		"event.recording_succeeded": "Saved {file} ({duration})",
		"event.recording_too_short": "Recording must be longer than {min}",
		"event.recording_failed":    "Recording failed: {error}",
		"event.playback_started":    "Playing {file}",
		"event.playback_finished":   "Playback finished",
		"event.playback_failed":     "Playback failed: {error}",
		"event.progress":            "{bytes} bytes",

		"error.busy":           "Another session is in progress",
		"error.no_recording":   "Nothing has been recorded yet",
		"error.device_missing": "Audio device not found",
	},
	LanguageJapanese: {
		"app.name": "EzRec",

		"button.record":  "録音",
		"button.stop":    "停止",
		"button.play":    "再生",
		"button.playing": "再生中...",

		"status.idle":      "待機中",
		"status.starting":  "準備中",
		"status.recording": "録音中",
		"status.playing":   "再生中",
		"status.stopping":  "停止中",
		"status.failed":    "失敗",

		"event.recording_started":   "録音が開始されました",
		"event.recording_succeeded": "{file} を保存しました ({duration})",
		"event.recording_too_short": "録音は{min}より長くしてください",
		"event.recording_failed":    "録音に失敗しました：{error}",
		"event.playback_started":    "{file} を再生しています",
		"event.playback_finished":   "再生が終了しました",
		"event.playback_failed":     "再生に失敗しました：{error}",
		"event.progress":            "{bytes} バイト",

		"error.busy":           "別のセッションが実行中です",
		"error.no_recording":   "まだ録音がありません",
		"error.device_missing": "オーディオデバイスが見つかりません",
	},
}
