// Package replay walks a stored event log through the correlation
// engine, pacing delivery with a configurable inter-event delay.
package replay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/relive/internal/engine"
	"github.com/gosuda/relive/internal/logsource"
	"github.com/gosuda/relive/internal/session"
)

// DefaultDelay is the inter-event pacing used when the caller does not
// choose one.
const DefaultDelay = 50 * time.Millisecond

// Scheduler replays a stored log strictly sequentially: each event is
// delivered only after its predecessor's delay has elapsed and its
// transitions have been applied. FastForward collapses the remaining
// delay to zero and suppresses visual side effects; the final state is
// identical either way.
type Scheduler struct {
	engine *engine.Engine
	store  *session.Store

	delayNs  atomic.Int64
	fastFwd  atomic.Bool
	onFinish func()
}

// NewScheduler creates a scheduler driving the given engine.
func NewScheduler(eng *engine.Engine, store *session.Store) *Scheduler {
	return &Scheduler{engine: eng, store: store}
}

// OnFinish registers the final UI sync performed after the last event
// (scroll-to-end, reveal the input affordance).
func (s *Scheduler) OnFinish(fn func()) {
	s.onFinish = fn
}

// FastForward zeroes the delay for all subsequently processed events and
// suppresses action-routing side effects for the remainder of the
// replay. Events still update the session state.
func (s *Scheduler) FastForward() {
	s.delayNs.Store(0)
	if s.fastFwd.CompareAndSwap(false, true) {
		s.engine.SuppressEffects(true)
	}
}

// Play delivers every event of the log in order. The loading flag is
// held for the whole replay and cleared only after the last event.
// Cancelling the context stops further delivery without rolling back
// transitions already applied.
func (s *Scheduler) Play(ctx context.Context, lg logsource.Log, initialDelay time.Duration) error {
	// A fast-forward requested before Play keeps its zero delay.
	if !s.fastFwd.Load() {
		s.delayNs.Store(int64(initialDelay))
	}

	if lg.WorkspaceRoot != "" {
		s.store.Apply(session.SetWorkspaceRoot{Path: lg.WorkspaceRoot})
	}
	s.store.Apply(session.SetLoading{Loading: true})

	for i, ev := range lg.Events {
		if d := time.Duration(s.delayNs.Load()); d > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("replay.Scheduler.Play: %w", ctx.Err())
			case <-time.After(d):
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("replay.Scheduler.Play: %w", err)
		}

		s.engine.HandleEvent(ev)

		// Individual events may clear the loading flag (agent_response,
		// stream_complete); replay holds it until the log is exhausted.
		if i < len(lg.Events)-1 {
			s.store.Apply(session.SetLoading{Loading: true})
		}
	}

	s.engine.SuppressEffects(false)
	s.store.Apply(session.SetLoading{Loading: false})

	log.Debug().Str("session_id", lg.SessionID).Int("events", len(lg.Events)).Msg("replay: finished")
	if s.onFinish != nil {
		s.onFinish()
	}
	return nil
}
