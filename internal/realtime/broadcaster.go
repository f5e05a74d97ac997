package realtime

import (
	"sync"

	"go.uber.org/zap"

	"dealdesk/pkg/logger"
	"dealdesk/pkg/metrics"
)

// Sink is the hub surface the broadcaster dispatches into.
type Sink interface {
	BroadcastStream(stream string, message Message)
	BroadcastToUser(stream, userID string, message Message)
}

// Broadcaster is the delivery contract the notification pipeline depends on.
// Implementations must never block the caller and never surface an error:
// realtime delivery is a best-effort side effect, and the business transaction
// that triggered it must not depend on it.
type Broadcaster interface {
	Broadcast(stream, event string, data any)
	BroadcastUser(stream, userID, event string, data any)
}

// SafeBroadcaster dispatches every message on a detached goroutine with a
// recover guard, so a panicking or hanging sink can only ever cost a warning
// log. A nil sink turns every call into a logged no-op, which makes a hub
// that failed to come up an explicit, observable condition rather than a
// per-call construction retry.
type SafeBroadcaster struct {
	sink Sink
	log  *zap.Logger
	wg   sync.WaitGroup
}

// NewSafeBroadcaster wraps the sink. sink may be nil.
func NewSafeBroadcaster(sink Sink) *SafeBroadcaster {
	return &SafeBroadcaster{
		sink: sink,
		log:  logger.WithModule("broadcast"),
	}
}

// Broadcast delivers an event to every subscriber of the stream, fire-and-forget.
func (b *SafeBroadcaster) Broadcast(stream, event string, data any) {
	b.dispatch(stream, func() {
		b.sink.BroadcastStream(stream, Message{Event: event, Data: data})
	})
}

// BroadcastUser delivers an event to a single user's connections, fire-and-forget.
func (b *SafeBroadcaster) BroadcastUser(stream, userID, event string, data any) {
	b.dispatch(stream, func() {
		b.sink.BroadcastToUser(stream, userID, Message{Event: event, Data: data})
	})
}

// Flush blocks until all dispatched deliveries have returned. Called during
// shutdown and by tests; never on a request path.
func (b *SafeBroadcaster) Flush() {
	b.wg.Wait()
}

func (b *SafeBroadcaster) dispatch(stream string, deliver func()) {
	if b == nil {
		return
	}
	if b.sink == nil {
		b.log.Warn("broadcast skipped: no realtime sink configured", zap.String("stream", stream))
		return
	}

	metrics.BroadcastsDispatched.WithLabelValues(stream).Inc()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Warn("broadcast delivery failed", zap.String("stream", stream), zap.Any("panic", r))
			}
		}()
		deliver()
	}()
}
