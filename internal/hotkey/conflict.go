package hotkey

import (
	"strings"

	"golang.design/x/hotkey"
)

// ConflictInfo represents information about a known shortcut conflict
type ConflictInfo struct {
	Name        string
	Description string
	Modifiers   []hotkey.Modifier
	Key         hotkey.Key
}

// knownConflicts contains desktop shortcuts a recording hotkey should avoid
var knownConflicts = []ConflictInfo{
	{
		Name:        "Launcher",
		Description: "Spotlight, Alfred, Raycast or the desktop launcher",
		Modifiers:   []hotkey.Modifier{modSuper},
		Key:         hotkey.KeySpace,
	},
	{
		Name:        "Force Quit",
		Description: "Force quit applications",
		Modifiers:   []hotkey.Modifier{modSuper, modAlt},
		Key:         hotkey.KeyEscape,
	},
	{
		Name:        "Terminal",
		Description: "Open a terminal (GNOME, KDE)",
		Modifiers:   []hotkey.Modifier{hotkey.ModCtrl, modAlt},
		Key:         hotkey.KeyT,
	},
	{
		Name:        "Lock Screen",
		Description: "Lock the session",
		Modifiers:   []hotkey.Modifier{modSuper},
		Key:         hotkey.KeyL,
	},
	{
		Name:        "Screenshot",
		Description: "Screenshot of a selection",
		Modifiers:   []hotkey.Modifier{modSuper, hotkey.ModShift},
		Key:         hotkey.Key4,
	},
}

// CheckConflicts checks if the given hotkey conflicts with known system shortcuts
func CheckConflicts(modifiers []hotkey.Modifier, key hotkey.Key) []ConflictInfo {
	var conflicts []ConflictInfo

	for _, known := range knownConflicts {
		if hotkeyMatches(modifiers, key, known.Modifiers, known.Key) {
			conflicts = append(conflicts, known)
		}
	}

	return conflicts
}

// hotkeyMatches checks if two hotkey combinations are identical
func hotkeyMatches(mods1 []hotkey.Modifier, key1 hotkey.Key, mods2 []hotkey.Modifier, key2 hotkey.Key) bool {
	if key1 != key2 {
		return false
	}

	modMap1 := make(map[hotkey.Modifier]bool)
	modMap2 := make(map[hotkey.Modifier]bool)

	for _, mod := range mods1 {
		modMap1[mod] = true
	}

	for _, mod := range mods2 {
		modMap2[mod] = true
	}

	if len(modMap1) != len(modMap2) {
		return false
	}

	for mod := range modMap1 {
		if !modMap2[mod] {
			return false
		}
	}

	return true
}

// FormatHotkey returns a human-readable string such as "Ctrl+Alt+R".
// Modifiers are always listed in Ctrl, Shift, Alt, Cmd order.
func FormatHotkey(modifiers []hotkey.Modifier, key hotkey.Key) string {
	has := make(map[hotkey.Modifier]bool, len(modifiers))
	for _, mod := range modifiers {
		has[mod] = true
	}

	var parts []string
	for _, m := range []struct {
		mod  hotkey.Modifier
		name string
	}{
		{hotkey.ModCtrl, "Ctrl"},
		{hotkey.ModShift, "Shift"},
		{modAlt, "Alt"},
		{modSuper, "Cmd"},
	} {
		if has[m.mod] {
			parts = append(parts, m.name)
		}
	}

	return strings.Join(append(parts, KeyName(key)), "+")
}
