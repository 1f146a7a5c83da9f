// Package notify is the user-visible notification surface: transport
// faults, upload summaries, and protocol error events all terminate
// here instead of propagating past the engine.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Level grades a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a function to the Notifier interface.
type Func func(level Level, message string)

func (f Func) Notify(level Level, message string) { f(level, message) }

// Log is a Notifier that writes to the structured log. It is the
// fallback sink when no richer surface is registered.
type Log struct{}

func (Log) Notify(level Level, message string) {
	switch level {
	case LevelError:
		log.Error().Msg("notify: " + message)
	case LevelWarning:
		log.Warn().Msg("notify: " + message)
	default:
		log.Info().Msg("notify: " + message)
	}
}

// Registry fans one notification out to every registered sink, falling
// back to the log when empty.
type Registry struct {
	mu    sync.RWMutex
	sinks []Notifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a sink.
func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	r.sinks = append(r.sinks, n)
	r.mu.Unlock()
}

// Notify delivers to all sinks, or to the log when none are registered.
func (r *Registry) Notify(level Level, message string) {
	r.mu.RLock()
	sinks := append([]Notifier(nil), r.sinks...)
	r.mu.RUnlock()

	if len(sinks) == 0 {
		Log{}.Notify(level, message)
		return
	}
	for _, n := range sinks {
		n.Notify(level, message)
	}
}
