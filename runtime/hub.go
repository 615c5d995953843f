// Package runtime owns event propagation and subscription lifecycles.
// It orchestrates the system without containing domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"duochat/contract"
	"duochat/domain"
	"duochat/domain/event"
	"duochat/errors"
	"duochat/observability"
	"duochat/repositories"
	"duochat/runtime/workers"
)

// Hub is the live center of the chat core. It fronts the conversation
// repository for writes, publishes a domain event after every committed
// send, and keeps the registry of live subscribers fed with full-state
// snapshots through a supervised fanout worker.
//
// Hub implements contract.ConversationStore and contract.SubscriptionSource.
type Hub struct {
	log            *slog.Logger
	repository     repositories.IConversationRepository
	index          *repositories.MessageIndex
	registry       contract.Registry
	supervisor     contract.Supervisor
	stats          *observability.Stats
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
	monitorEvery   time.Duration
}

func NewHub(log *slog.Logger, supervisor contract.Supervisor,
	repository repositories.IConversationRepository, index *repositories.MessageIndex,
	bufferSize int, sinkTimeout, monitorEvery time.Duration) *Hub {
	return &Hub{
		log:          log,
		repository:   repository,
		index:        index,
		registry:     NewRegistry(),
		supervisor:   supervisor,
		stats:        &observability.Stats{},
		events:       make(chan event.DomainEvent, bufferSize),
		sinkTimeout:  sinkTimeout,
		monitorEvery: monitorEvery,
	}
}

// Add registers permanent event sinks (projections, indexes). Must be
// called before Start.
func (h *Hub) Add(sinks ...contract.EventSink) {
	h.permanentSinks = append(h.permanentSinks, sinks...)
}

// Start wires the fanout and monitor workers under the supervisor and runs
// them in the background until ctx ends or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	fanout := workers.NewSnapshotFanout(h.log, h.events, h.repository,
		h.registry, h.stats, h.sinkTimeout)
	if h.index != nil {
		fanout.Add(h.index)
	}
	fanout.Add(h.permanentSinks...)

	h.supervisor.Add(fanout)
	if h.monitorEvery > 0 {
		h.supervisor.Add(workers.NewMonitor(h.log, h.stats, h.monitorEvery))
	}

	h.log.Info("Starting hub and all supervised workers")
	go h.supervisor.Run(ctx)
}

func (h *Hub) Stop() {
	h.log.Info("Requesting hub shutdown")
	h.supervisor.Stop()
}

func (h *Hub) Stats() observability.Snapshot {
	return h.stats.Snapshot()
}

// Send commits the atomic dual write and publishes the resulting event.
// Publication is non-blocking: when the channel is saturated the event is
// dropped and counted, and subscribers catch up on the next delivery since
// every delivery carries full state anyway.
func (h *Hub) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	message, err := h.repository.Send(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}

	evt := event.MessageSent{
		ID:           message.ID,
		Conversation: cmd.ConversationID(),
		SenderID:     message.SenderID,
		Content:      message.Content,
		At:           message.CreatedAt,
	}
	select {
	case h.events <- evt:
		h.stats.EventsPublished.Add(1)
	default:
		h.stats.EventsDropped.Add(1)
		h.log.Warn("Dropping event", "conversation", evt.Conversation,
			"error", errors.ErrHubChannelFull)
	}
	return message, nil
}

func (h *Hub) History(q domain.HistoryQuery) ([]domain.Message, error) {
	return h.repository.History(q)
}

func (h *Hub) Metadata(id domain.ConversationID) (domain.ConversationMetadata, error) {
	return h.repository.Metadata(id)
}

// Subscribe attaches a participant's sink to a conversation and delivers
// the initial snapshot synchronously, before any live event can race it.
// The access gate runs on attach: a denied read is reported through
// Reject, not returned, so the caller classifies it like any later
// subscription failure. A subscriber outside the conversation's pair is
// rejected without ever being registered, so the fanout can never hand it
// a snapshot. The returned cancel detaches the sink; once it returns, the
// fanout can no longer reach it.
func (h *Hub) Subscribe(id domain.ConversationID, subscriberID string,
	sink contract.MessageSink) (cancel func()) {
	if !id.Has(subscriberID) {
		rejectCtx, done := context.WithTimeout(context.Background(), h.sinkTimeout)
		sink.Reject(rejectCtx, fmt.Errorf("subscriber %s on conversation %s: %w",
			subscriberID, id, errors.ErrAccessDenied))
		done()
		return func() {}
	}

	h.registry.Subscribe(id, subscriberID, sink)
	h.stats.ActiveSubscribers.Add(1)

	messages, err := h.repository.History(domain.HistoryQuery{
		ViewerID:  subscriberID,
		PartnerID: partnerOf(id, subscriberID),
	})
	initialCtx, done := context.WithTimeout(context.Background(), h.sinkTimeout)
	if err != nil {
		sink.Reject(initialCtx, err)
	} else if deliverErr := sink.Deliver(initialCtx, messages); deliverErr != nil {
		h.log.Warn("Initial snapshot delivery failed", "conversation", id, "error", deliverErr)
	}
	done()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.registry.Unsubscribe(id, subscriberID)
			h.stats.ActiveSubscribers.Add(-1)
		})
	}
}

// SearchMessages runs a full-text query over one conversation, gated by
// the same access rule as History.
func (h *Hub) SearchMessages(ctx context.Context, viewerID string,
	id domain.ConversationID, terms string, limit int) ([]repositories.MessageHit, error) {
	metadata, err := h.repository.Metadata(id)
	if err != nil {
		return nil, err
	}
	if viewerID != metadata.Participants[0] && viewerID != metadata.Participants[1] {
		return nil, fmt.Errorf("viewer %s on conversation %s: %w", viewerID, id, errors.ErrAccessDenied)
	}
	if h.index == nil {
		return nil, nil
	}
	return h.index.Search(ctx, id, terms, limit)
}

// partnerOf resolves the other side of a two-party conversation id.
func partnerOf(id domain.ConversationID, selfID string) string {
	a, b := id.Participants()
	if selfID == a {
		return b
	}
	return a
}
