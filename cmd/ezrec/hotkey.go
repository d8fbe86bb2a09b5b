package main

import (
	"context"
	"fmt"
	"sync"

	"golang.design/x/mainthread"

	"github.com/yok-tottii/EzRec/internal/hotkey"
)

// hotkeyBinding keeps the global record hotkey registered and feeding the
// engine. Reload re-registers it after the settings change.
type hotkeyBinding struct {
	app *App
	ctx context.Context

	mu    sync.Mutex
	mgr   *hotkey.Manager
	label string
	wg    sync.WaitGroup
}

func newHotkeyBinding(ctx context.Context, app *App) *hotkeyBinding {
	return &hotkeyBinding{app: app, ctx: ctx}
}

// Start registers the configured hotkey
func (b *hotkeyBinding) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startLocked()
}

func (b *hotkeyBinding) startLocked() error {
	hc := b.app.config.Clone().Hotkey

	mode, err := hotkey.ParseMode(hc.Mode)
	if err != nil {
		return err
	}
	hkCfg, err := hotkey.FromConfig(hc, mode)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}
	for _, c := range hotkey.CheckConflicts(hkCfg.Modifiers, hkCfg.Key) {
		b.app.log.Warn("Hotkey %s may clash with %s (%s)", hkCfg, c.Name, c.Description)
	}

	mgr := hotkey.New()
	mainthread.Call(func() {
		err = mgr.Register(hkCfg)
	})
	if err != nil {
		return err
	}
	b.mgr = mgr
	b.label = hkCfg.String()

	events := mgr.Events()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		hotkey.Drive(b.ctx, events, b.app.engine, mode, b.app.storageMode, b.app.log)
	}()

	b.app.log.Info("Hotkey %s registered (%s)", hkCfg, hc.Mode)
	return nil
}

func (b *hotkeyBinding) closeLocked() error {
	if b.mgr == nil {
		return nil
	}
	var err error
	mgr := b.mgr
	mainthread.Call(func() {
		err = mgr.Close()
	})
	b.wg.Wait()
	b.mgr = nil
	return err
}

// Label returns the registered key combination
func (b *hotkeyBinding) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

// Reload replaces the registered hotkey with the configured one
func (b *hotkeyBinding) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.closeLocked(); err != nil {
		b.app.log.Warn("%v", err)
	}
	return b.startLocked()
}

// Close unregisters the hotkey and waits for its driver goroutine
func (b *hotkeyBinding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}
