// Package klog is the kernel's console logger. It is deliberately thin:
// fmt.Printf to the console is what biscuit's kernel does everywhere
// (main.go), and a freestanding kernel has no syslog daemon to hand lines to.
// The one thing bare fmt.Printf doesn't give biscuit is a volume knob, so
// this package adds leveled, prefixed lines on top of the same fmt.Printf
// backend.
package klog

import (
	"fmt"
	"sync"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	mu      sync.Mutex
	current = LevelInfo
)

// SetLevel changes the global verbosity. Safe to call concurrently with
// logging calls.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

func enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l <= current
}

func Errorf(format string, args ...interface{}) {
	if enabled(LevelError) {
		fmt.Printf("[error] "+format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		fmt.Printf("[warn] "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		fmt.Printf("[info] "+format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		fmt.Printf("[debug] "+format, args...)
	}
}
