package hotkey

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4 on stock keymaps
const (
	modAlt   = hotkey.Mod1
	modSuper = hotkey.Mod4
)
