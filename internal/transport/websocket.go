package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/protocol"
	"github.com/gosuda/relive/internal/session"
)

// maxFrameSize accommodates browser screenshots embedded in tool
// results.
const maxFrameSize = 32 << 20

// WebSocket is the live transport: one full-duplex socket per session.
// On successful connect it immediately sends the workspace_info
// bootstrap handshake. Malformed inbound frames are logged and dropped;
// socket faults surface through the notifier and flip the status to
// disconnected without any reconnect attempt.
type WebSocket struct {
	endpoint string
	token    string
	deviceID string
	store    *session.Store
	notifier notify.Notifier

	mu     sync.Mutex
	conn   *websocket.Conn
	status session.ConnectionState
	cancel context.CancelFunc
}

// NewWebSocket creates a websocket transport for endpoint (a ws:// or
// wss:// URL). token and deviceID are passed as query parameters.
func NewWebSocket(endpoint, token, deviceID string, store *session.Store, notifier notify.Notifier) *WebSocket {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &WebSocket{
		endpoint: endpoint,
		token:    token,
		deviceID: deviceID,
		store:    store,
		notifier: notifier,
		status:   session.Disconnected,
	}
}

// Connect dials the server and starts the read loop. The returned
// channel closes when the socket does.
func (w *WebSocket) Connect(ctx context.Context) (<-chan protocol.Event, error) {
	if err := InspectToken(w.token); err != nil {
		log.Warn().Err(err).Msg("transport: proceeding with suspect token")
	}

	w.setStatus(session.Connecting)

	dialURL, err := w.buildURL()
	if err != nil {
		w.setStatus(session.Disconnected)
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, dialURL, nil)
	if err != nil {
		w.setStatus(session.Disconnected)
		w.notifier.Notify(notify.LevelError, "connection failed: "+err.Error())
		return nil, fmt.Errorf("transport.WebSocket.Connect: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	readCtx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.conn = conn
	w.cancel = cancel
	w.mu.Unlock()
	w.setStatus(session.Connected)

	events := make(chan protocol.Event, 64)
	go w.readLoop(readCtx, conn, events)

	// Session bootstrap handshake.
	if err := w.Send(ctx, protocol.WorkspaceInfoRequest()); err != nil {
		log.Error().Err(err).Msg("transport: bootstrap handshake failed")
	}

	return events, nil
}

// Send writes one request frame. Not connected means an immediate
// failure with a user-visible warning; nothing is queued.
func (w *WebSocket) Send(ctx context.Context, req protocol.Request) error {
	w.mu.Lock()
	conn := w.conn
	status := w.status
	w.mu.Unlock()

	if status != session.Connected || conn == nil {
		w.notifier.Notify(notify.LevelWarning, "cannot send: not connected")
		return ErrNotConnected
	}

	frame, err := req.Encode()
	if err != nil {
		return fmt.Errorf("transport.WebSocket.Send: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		w.setStatus(session.Disconnected)
		w.notifier.Notify(notify.LevelError, "send failed: "+err.Error())
		return fmt.Errorf("transport.WebSocket.Send: %w", err)
	}
	return nil
}

// Status reports the connection state.
func (w *WebSocket) Status() session.ConnectionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Close tears the socket down. Transitions already applied stay applied.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	cancel := w.cancel
	w.conn = nil
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	w.setStatus(session.Disconnected)
	return nil
}

func (w *WebSocket) readLoop(ctx context.Context, conn *websocket.Conn, events chan<- protocol.Event) {
	defer close(events)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			w.mu.Lock()
			wasOpen := w.conn != nil
			w.conn = nil
			w.mu.Unlock()

			w.setStatus(session.Disconnected)
			if wasOpen && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				w.notifier.Notify(notify.LevelError, "connection lost: "+err.Error())
			}
			return
		}

		ev, decodeErr := protocol.Decode(data)
		if decodeErr != nil {
			// Malformed frame: dropped, never delivered downstream.
			log.Warn().Err(decodeErr).Int("bytes", len(data)).Msg("transport: dropping malformed frame")
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (w *WebSocket) buildURL() (string, error) {
	u, err := url.Parse(w.endpoint)
	if err != nil {
		return "", fmt.Errorf("transport.WebSocket: parse endpoint: %w", err)
	}
	q := u.Query()
	if w.deviceID != "" {
		q.Set("device_id", w.deviceID)
	}
	if w.token != "" {
		q.Set("token", w.token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (w *WebSocket) setStatus(s session.ConnectionState) {
	w.mu.Lock()
	changed := w.status != s
	w.status = s
	w.mu.Unlock()

	if changed && w.store != nil {
		w.store.Apply(session.SetConnection{State: s})
	}
}
