// Package transport owns the bidirectional message channel to the agent
// server. Adapters surface faults to the user and mark the connection
// state, but never reconnect on their own: redialing is the caller's
// decision.
package transport

import (
	"context"
	"errors"

	"github.com/gosuda/relive/internal/protocol"
	"github.com/gosuda/relive/internal/session"
)

// ErrNotConnected is returned by Send when the channel is not open.
// Sends are never queued or retried.
var ErrNotConnected = errors.New("transport: not connected")

// ErrReceiveOnly is returned by Send on receive-only feeds.
var ErrReceiveOnly = errors.New("transport: receive-only feed")

// Transport is one bidirectional protocol channel per session.
type Transport interface {
	// Connect opens the channel and returns the inbound event stream.
	// The stream closes when the connection drops or Close is called.
	Connect(ctx context.Context) (<-chan protocol.Event, error)

	// Send writes one client request. It fails immediately when the
	// channel is not connected.
	Send(ctx context.Context, req protocol.Request) error

	// Status reports the current three-state connection status.
	Status() session.ConnectionState

	// Close tears the channel down.
	Close() error
}
