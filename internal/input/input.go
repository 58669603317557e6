// Package input implements the InputManager singleton: a character queue
// fed by the USB HID keyboard driver and a cursor-position queue fed by a
// pointing device, consumed by the shell's command task (spec.md §2 step 8
// "Input manager + shell").
package input

import "sync"

// CursorInfo is a single reported pointer sample. The pointing device
// itself (PS/2 or otherwise) is an out-of-scope external collaborator;
// this is its contract as consumed here.
type CursorInfo struct {
	X, Y    int32
	Buttons uint8
}

// Manager is the process-wide singleton holding the character and cursor
// queues (spec.md §5: "accessed via a lock-guarded Option, initialized on
// first take()").
type Manager struct {
	mu      sync.Mutex
	chars   []rune
	cursors []CursorInfo
}

var (
	singletonMu sync.Mutex
	singleton   *Manager
)

// Take returns the process-wide Manager, constructing it on first call.
func Take() *Manager {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == nil {
		singleton = &Manager{}
	}
	return singleton
}

// PushChar enqueues a decoded keystroke, called by the USB HID keyboard
// driver's attach_usb_device loop.
func (m *Manager) PushChar(r rune) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chars = append(m.chars, r)
}

// ReadKey implements cpuctx.KeyReader: pops the oldest queued character, or
// reports none pending.
func (m *Manager) ReadKey() (rune, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chars) == 0 {
		return 0, false
	}
	r := m.chars[0]
	m.chars = m.chars[1:]
	return r, true
}

// PushCursor enqueues a pointer sample.
func (m *Manager) PushCursor(c CursorInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors = append(m.cursors, c)
}

// ReadCursor pops the oldest queued cursor sample, or reports none pending.
func (m *Manager) ReadCursor() (CursorInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.cursors) == 0 {
		return CursorInfo{}, false
	}
	c := m.cursors[0]
	m.cursors = m.cursors[1:]
	return c, true
}
