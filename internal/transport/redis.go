package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/protocol"
	"github.com/gosuda/relive/internal/session"
)

// AgentChannel is the pub/sub channel a server publishes session events
// on.
func AgentChannel(sessionID string) string {
	return "agent:" + sessionID
}

// RedisFeed is a receive-only transport that observes a session by
// subscribing to its agent pub/sub channel, for deployments where the
// server fans events out through Redis instead of (or alongside) the
// client socket. Send always fails: the feed carries no backchannel.
type RedisFeed struct {
	client    *redis.Client
	sessionID string
	store     *session.Store
	notifier  notify.Notifier

	mu     sync.Mutex
	status session.ConnectionState
	sub    *redis.PubSub
	cancel context.CancelFunc
}

// NewRedisFeed creates a feed for the given session.
func NewRedisFeed(addr, password string, db int, sessionID string, store *session.Store, notifier notify.Notifier) *RedisFeed {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &RedisFeed{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		sessionID: sessionID,
		store:     store,
		notifier:  notifier,
		status:    session.Disconnected,
	}
}

// Connect subscribes to the session channel and starts relaying frames.
func (r *RedisFeed) Connect(ctx context.Context) (<-chan protocol.Event, error) {
	r.setStatus(session.Connecting)

	if err := r.client.Ping(ctx).Err(); err != nil {
		r.setStatus(session.Disconnected)
		r.notifier.Notify(notify.LevelError, "connection failed: "+err.Error())
		return nil, fmt.Errorf("transport.RedisFeed.Connect: ping: %w", err)
	}

	sub := r.client.Subscribe(ctx, AgentChannel(r.sessionID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		r.setStatus(session.Disconnected)
		r.notifier.Notify(notify.LevelError, "subscribe failed: "+err.Error())
		return nil, fmt.Errorf("transport.RedisFeed.Connect: subscribe: %w", err)
	}

	relayCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.sub = sub
	r.cancel = cancel
	r.mu.Unlock()
	r.setStatus(session.Connected)

	events := make(chan protocol.Event, 64)
	go r.relay(relayCtx, sub, events)

	return events, nil
}

// Send always fails: the feed is observe-only.
func (r *RedisFeed) Send(ctx context.Context, req protocol.Request) error {
	r.notifier.Notify(notify.LevelWarning, "cannot send on a read-only session feed")
	return ErrReceiveOnly
}

// Status reports the connection state.
func (r *RedisFeed) Status() session.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Close unsubscribes and closes the client.
func (r *RedisFeed) Close() error {
	r.mu.Lock()
	sub := r.sub
	cancel := r.cancel
	r.sub = nil
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		_ = sub.Close()
	}
	r.setStatus(session.Disconnected)

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("transport.RedisFeed.Close: %w", err)
	}
	return nil
}

func (r *RedisFeed) relay(ctx context.Context, sub *redis.PubSub, events chan<- protocol.Event) {
	defer close(events)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				r.setStatus(session.Disconnected)
				return
			}
			ev, err := protocol.Decode([]byte(msg.Payload))
			if err != nil {
				log.Warn().Err(err).Msg("transport: dropping malformed pub/sub frame")
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *RedisFeed) setStatus(s session.ConnectionState) {
	r.mu.Lock()
	changed := r.status != s
	r.status = s
	r.mu.Unlock()

	if changed && r.store != nil {
		r.store.Apply(session.SetConnection{State: s})
	}
}
