package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/EzRec/internal/config"
)

// Key codes are not contiguous on every platform, so names are listed
// explicitly instead of computed from KeyA or Key0.
var keyTable = []struct {
	name string
	key  hotkey.Key
}{
	{"Space", hotkey.KeySpace},
	{"A", hotkey.KeyA},
	{"B", hotkey.KeyB},
	{"C", hotkey.KeyC},
	{"D", hotkey.KeyD},
	{"E", hotkey.KeyE},
	{"F", hotkey.KeyF},
	{"G", hotkey.KeyG},
	{"H", hotkey.KeyH},
	{"I", hotkey.KeyI},
	{"J", hotkey.KeyJ},
	{"K", hotkey.KeyK},
	{"L", hotkey.KeyL},
	{"M", hotkey.KeyM},
	{"N", hotkey.KeyN},
	{"O", hotkey.KeyO},
	{"P", hotkey.KeyP},
	{"Q", hotkey.KeyQ},
	{"R", hotkey.KeyR},
	{"S", hotkey.KeyS},
	{"T", hotkey.KeyT},
	{"U", hotkey.KeyU},
	{"V", hotkey.KeyV},
	{"W", hotkey.KeyW},
	{"X", hotkey.KeyX},
	{"Y", hotkey.KeyY},
	{"Z", hotkey.KeyZ},
	{"0", hotkey.Key0},
	{"1", hotkey.Key1},
	{"2", hotkey.Key2},
	{"3", hotkey.Key3},
	{"4", hotkey.Key4},
	{"5", hotkey.Key5},
	{"6", hotkey.Key6},
	{"7", hotkey.Key7},
	{"8", hotkey.Key8},
	{"9", hotkey.Key9},
	{"Return", hotkey.KeyReturn},
	{"Esc", hotkey.KeyEscape},
	{"Tab", hotkey.KeyTab},
	{"Delete", hotkey.KeyDelete},
	{"Left", hotkey.KeyLeft},
	{"Right", hotkey.KeyRight},
	{"Up", hotkey.KeyUp},
	{"Down", hotkey.KeyDown},
	{"F1", hotkey.KeyF1},
	{"F2", hotkey.KeyF2},
	{"F3", hotkey.KeyF3},
	{"F4", hotkey.KeyF4},
	{"F5", hotkey.KeyF5},
	{"F6", hotkey.KeyF6},
	{"F7", hotkey.KeyF7},
	{"F8", hotkey.KeyF8},
	{"F9", hotkey.KeyF9},
	{"F10", hotkey.KeyF10},
	{"F11", hotkey.KeyF11},
	{"F12", hotkey.KeyF12},
}

var keyAliases = map[string]string{
	"ENTER":  "Return",
	"ESCAPE": "Esc",
}

var (
	keysByName = make(map[string]hotkey.Key, len(keyTable))
	namesByKey = make(map[hotkey.Key]string, len(keyTable))
)

func init() {
	for _, k := range keyTable {
		keysByName[strings.ToUpper(k.name)] = k.key
		namesByKey[k.key] = k.name
	}
}

// ParseKey converts a key name such as "R", "f9" or "Space" to a key code
func ParseKey(name string) (hotkey.Key, error) {
	// macOS IMEs send NBSP for the space bar
	if name == "\u00a0" {
		name = "Space"
	}
	name = strings.TrimSpace(name)
	upper := strings.ToUpper(name)
	if alias, ok := keyAliases[upper]; ok {
		upper = strings.ToUpper(alias)
	}
	if k, ok := keysByName[upper]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// KeyName returns the display name of a key code
func KeyName(key hotkey.Key) string {
	if name, ok := namesByKey[key]; ok {
		return name
	}
	return "Unknown"
}

// FromConfig builds a hotkey configuration from the settings file
func FromConfig(c config.HotkeyConfig, mode RecordingMode) (Config, error) {
	key, err := ParseKey(c.Key)
	if err != nil {
		return Config{}, err
	}

	var mods []hotkey.Modifier
	if c.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if c.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if c.Alt {
		mods = append(mods, modAlt)
	}
	if c.Cmd {
		mods = append(mods, modSuper)
	}
	if len(mods) == 0 {
		return Config{}, fmt.Errorf("hotkey %s needs at least one modifier", KeyName(key))
	}

	return Config{Modifiers: mods, Key: key, Mode: mode}, nil
}
