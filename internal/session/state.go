// Package session holds the lifecycle state shared between the control
// goroutine and the worker.
//
// The whole observable state (lifecycle state, direction, storage mode and
// the stop request) lives in one atomic word, so a reader on any goroutine
// always sees a consistent combination and every transition is a single
// compare-and-swap.
package session

import "sync/atomic"

// State is the lifecycle state of the current session
type State uint32

const (
	// Idle means no session is in progress
	Idle State = iota
	// Starting means a start was accepted and the worker is acquiring resources
	Starting
	// Active means the pump is running
	Active
	// Stopping means the pump has ended and resources are being released
	Stopping
	// Failed means the session ended with an error and is being cleaned up
	Failed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Starting:
		return "Starting"
	case Active:
		return "Active"
	case Stopping:
		return "Stopping"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Direction is what a session does with the device
type Direction uint8

const (
	// Record captures from the input device into a file
	Record Direction = iota
	// Play reads a file into the output device
	Play
)

// String returns the string representation of the direction
func (d Direction) String() string {
	switch d {
	case Record:
		return "Record"
	case Play:
		return "Play"
	default:
		return "Unknown"
	}
}

// Mode is how session audio is stored
type Mode uint8

const (
	// Byte stores raw headerless PCM
	Byte Mode = iota
	// Container stores PCM inside a container file
	Container
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case Byte:
		return "byte"
	case Container:
		return "container"
	default:
		return "unknown"
	}
}

// ParseMode parses "byte" or "container"
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "byte", "":
		return Byte, true
	case "container":
		return Container, true
	default:
		return Byte, false
	}
}

// word layout: bits 0-7 state, 8-15 direction, 16-23 mode, bit 24 stop request
const (
	dirShift  = 8
	modeShift = 16
	stopBit   = 1 << 24
	stateMask = 0xFF
)

func pack(s State, d Direction, m Mode) uint32 {
	return uint32(s) | uint32(d)<<dirShift | uint32(m)<<modeShift
}

// Snapshot is a consistent view of the machine
type Snapshot struct {
	State         State
	Direction     Direction
	Mode          Mode
	StopRequested bool
}

func unpack(w uint32) Snapshot {
	return Snapshot{
		State:         State(w & stateMask),
		Direction:     Direction(w >> dirShift & 0xFF),
		Mode:          Mode(w >> modeShift & 0xFF),
		StopRequested: w&stopBit != 0,
	}
}

// Machine is the session state machine:
//
//	Idle -> Starting -> Active -> Stopping -> Idle
//	Starting | Active -> Failed -> Idle
//
// TryStart and RequestStop are called by the control goroutine; the other
// transitions belong to the worker.
type Machine struct {
	word atomic.Uint32
}

// Load returns the current snapshot
func (m *Machine) Load() Snapshot {
	return unpack(m.word.Load())
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	return m.Load().State
}

// TryStart claims the machine for a new session. It returns false, leaving
// the machine untouched, unless the machine is Idle.
func (m *Machine) TryStart(d Direction, mode Mode) bool {
	for {
		w := m.word.Load()
		if State(w&stateMask) != Idle {
			return false
		}
		if m.word.CompareAndSwap(w, pack(Starting, d, mode)) {
			return true
		}
	}
}

// transition moves from one of the allowed states to next, keeping
// direction, mode and any pending stop request
func (m *Machine) transition(next State, from ...State) bool {
	for {
		w := m.word.Load()
		cur := State(w & stateMask)
		allowed := false
		for _, f := range from {
			if cur == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
		if m.word.CompareAndSwap(w, w&^stateMask|uint32(next)) {
			return true
		}
	}
}

// Activate moves Starting to Active once the device and file are held
func (m *Machine) Activate() bool {
	return m.transition(Active, Starting)
}

// BeginStopping moves Active to Stopping after the pump returned
func (m *Machine) BeginStopping() bool {
	return m.transition(Stopping, Active)
}

// Fail moves Starting or Active to Failed
func (m *Machine) Fail() bool {
	return m.transition(Failed, Starting, Active)
}

// Finish returns the machine to Idle from Stopping or Failed and clears the
// stop request. It is the last thing the worker does for a session.
func (m *Machine) Finish() bool {
	for {
		w := m.word.Load()
		cur := State(w & stateMask)
		if cur != Stopping && cur != Failed {
			return false
		}
		if m.word.CompareAndSwap(w, pack(Idle, Record, Byte)) {
			return true
		}
	}
}

// RequestStop asks the running session of direction d to stop at the next
// chunk boundary. It returns false and does nothing unless such a session
// is Starting or Active.
func (m *Machine) RequestStop(d Direction) bool {
	for {
		w := m.word.Load()
		cur := State(w & stateMask)
		if cur != Starting && cur != Active {
			return false
		}
		if Direction(w>>dirShift&0xFF) != d {
			return false
		}
		if w&stopBit != 0 {
			return true
		}
		if m.word.CompareAndSwap(w, w|stopBit) {
			return true
		}
	}
}

// Running reports whether the pump should keep going: the session is
// Active and no stop was requested
func (m *Machine) Running() bool {
	w := m.word.Load()
	return State(w&stateMask) == Active && w&stopBit == 0
}
