package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"duochat/contract"
	"duochat/domain"
	"duochat/domain/event"
	"duochat/observability"
)

// SnapshotSource reloads the full current message list of a conversation.
type SnapshotSource interface {
	Snapshot(id domain.ConversationID) ([]domain.Message, error)
}

// SnapshotFanout turns committed events into full-state deliveries.
//
// For each event it first feeds the permanent sinks (index, projections),
// then re-reads the conversation's complete message list and pushes it to
// every live subscriber. Subscribers always receive whole snapshots, never
// deltas: the log stays the single source of truth and late or coalesced
// deliveries are harmless.
//
// Fan-out is best effort with a per-sink timeout; it is not a broker and
// gives no durability or retry guarantees.
type SnapshotFanout struct {
	log            *slog.Logger
	events         chan event.DomainEvent
	source         SnapshotSource
	registry       contract.Registry
	permanentSinks []contract.EventSink
	stats          *observability.Stats
	sinkTimeout    time.Duration
}

func NewSnapshotFanout(log *slog.Logger, events chan event.DomainEvent,
	source SnapshotSource, registry contract.Registry,
	stats *observability.Stats, sinkTimeout time.Duration) *SnapshotFanout {
	return &SnapshotFanout{
		log:         log,
		events:      events,
		source:      source,
		registry:    registry,
		stats:       stats,
		sinkTimeout: sinkTimeout,
	}
}

func (w *SnapshotFanout) Add(sinks ...contract.EventSink) *SnapshotFanout {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *SnapshotFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping snapshot fanout")
			return nil
		}
	}
}

// Fanout processes one event end to end: permanent sinks first, then a
// fresh snapshot to every subscriber of the event's conversation.
func (w *SnapshotFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.permanentSinks {
		w.consume(ctx, sink, evt)
	}

	sinks := w.registry.SinksFor(evt.ConversationID())
	if len(sinks) == 0 {
		return
	}

	messages, err := w.source.Snapshot(evt.ConversationID())
	if err != nil {
		w.log.Error("Snapshot load failed", "conversation", evt.ConversationID(), "error", err)
		for _, sink := range sinks {
			sink.Reject(ctx, err)
		}
		w.stats.DeliveryFailures.Add(uint64(len(sinks)))
		return
	}

	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Deliver(deliveryCtx, messages); err != nil {
			w.log.Warn("Subscriber delivery failed", "conversation", evt.ConversationID(), "error", err)
			w.stats.DeliveryFailures.Add(1)
		} else {
			w.stats.SnapshotsDelivered.Add(1)
		}
		cancel()
	}
}

func (w *SnapshotFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Permanent sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
	}
}
