// Package hotkey binds a global keyboard shortcut to the recorder
package hotkey

import (
	"context"
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/session"
)

// RecordingMode defines how the hotkey triggers recording
type RecordingMode int

const (
	// PressToHold mode: record while key is held down
	PressToHold RecordingMode = iota
	// Toggle mode: one press starts, the next press stops
	Toggle
)

// ParseMode converts "hold" or "toggle" to a RecordingMode
func ParseMode(s string) (RecordingMode, error) {
	switch s {
	case "hold", "":
		return PressToHold, nil
	case "toggle":
		return Toggle, nil
	}
	return PressToHold, fmt.Errorf("unknown hotkey mode %q", s)
}

// EventType represents the type of hotkey event
type EventType int

const (
	// Pressed indicates the hotkey was pressed
	Pressed EventType = iota
	// Released indicates the hotkey was released
	Released
)

// Event represents a hotkey event
type Event struct {
	Type EventType
}

// Config holds hotkey configuration
type Config struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
	Mode      RecordingMode
}

// String formats the key combination
func (c Config) String() string {
	return FormatHotkey(c.Modifiers, c.Key)
}

// Manager manages global hotkey registration and events
type Manager struct {
	hk        *hotkey.Hotkey
	config    Config
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates a new hotkey manager
func New() *Manager {
	return &Manager{}
}

// Register registers the hotkey with the system. On macOS it must be
// called from a function run by mainthread.Init.
func (m *Manager) Register(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hotkey is already running, call Close() first")
	}

	m.config = config

	// Channels may have been closed by a previous Close()
	m.stopChan = make(chan struct{})
	m.eventChan = make(chan Event, 10)

	hk := hotkey.New(m.config.Modifiers, m.config.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", config, err)
	}

	m.hk = hk
	m.running = true

	m.wg.Add(1)
	go m.listen(hk, m.eventChan, m.stopChan)

	return nil
}

// listen forwards key transitions. Toggle mode only reports presses.
func (m *Manager) listen(hk *hotkey.Hotkey, events chan<- Event, stop <-chan struct{}) {
	defer m.wg.Done()

	send := func(ev Event) {
		select {
		case events <- ev:
		case <-stop:
		}
	}

	for {
		select {
		case <-hk.Keydown():
			send(Event{Type: Pressed})
		case <-hk.Keyup():
			if m.config.Mode == PressToHold {
				send(Event{Type: Released})
			}
		case <-stop:
			return
		}
	}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventChan
}

// Close unregisters the hotkey and stops listening
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	var unregisterErr error

	close(m.stopChan)
	m.wg.Wait()

	// Cleanup continues even if unregistering fails
	if m.hk != nil {
		if err := m.hk.Unregister(); err != nil {
			unregisterErr = fmt.Errorf("failed to unregister hotkey: %w", err)
		}
		m.hk = nil
	}

	if m.eventChan != nil {
		close(m.eventChan)
		m.eventChan = nil
	}

	// Cleared even on failure so Register can be retried
	m.running = false

	return unregisterErr
}

// IsRunning returns whether the hotkey is currently registered and running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetConfig returns a deep copy of the current hotkey configuration
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	configCopy := m.config
	if m.config.Modifiers != nil {
		configCopy.Modifiers = make([]hotkey.Modifier, len(m.config.Modifiers))
		copy(configCopy.Modifiers, m.config.Modifiers)
	}

	return configCopy
}

// Recorder is the part of the recording engine a hotkey drives
type Recorder interface {
	RequestStart(mode session.Mode) bool
	RequestStop() bool
	State() session.State
}

// Drive turns hotkey events into start and stop requests until events is
// closed or ctx is done. In Toggle mode a press stops a running recording
// and otherwise starts one. storage is asked for the file mode on every
// start.
func Drive(ctx context.Context, events <-chan Event, rec Recorder, mode RecordingMode, storage func() session.Mode, log *logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			start := ev.Type == Pressed
			if mode == Toggle {
				if ev.Type != Pressed {
					continue
				}
				start = rec.State() == session.Idle
			}

			if start {
				if !rec.RequestStart(storage()) {
					log.Debug("Hotkey start ignored in state %s", rec.State())
				}
			} else if !rec.RequestStop() {
				log.Debug("Hotkey stop ignored in state %s", rec.State())
			}
		}
	}
}
