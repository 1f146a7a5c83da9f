package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_FansOut(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	var first, second []string
	r.Register(Func(func(_ Level, message string) { first = append(first, message) }))
	r.Register(Func(func(_ Level, message string) { second = append(second, message) }))

	r.Notify(LevelWarning, "disk almost full")

	assert.Equal(t, []string{"disk almost full"}, first)
	assert.Equal(t, []string{"disk almost full"}, second)
}

func TestRegistry_EmptyFallsBackToLog(t *testing.T) {
	t.Parallel()

	// No sinks registered: the notification lands in the log without
	// panicking.
	NewRegistry().Notify(LevelError, "nobody listening")
}

func TestFuncAdapter(t *testing.T) {
	t.Parallel()

	var gotLevel Level
	var gotMessage string
	n := Func(func(level Level, message string) {
		gotLevel = level
		gotMessage = message
	})
	n.Notify(LevelInfo, "hello")

	assert.Equal(t, LevelInfo, gotLevel)
	assert.Equal(t, "hello", gotMessage)
}
