package main

import (
	"os"

	"golang.design/x/mainthread"
)

const version = "0.1.0"

func main() {
	// macOS delivers global hotkeys on the main thread only
	code := 0
	mainthread.Init(func() {
		code = execute()
	})
	os.Exit(code)
}
