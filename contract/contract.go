//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"duochat/domain"
	"duochat/domain/event"
)

// MessageSink receives the live view of one conversation. Every delivery
// carries the FULL current ordered message list, never a delta: the log is
// the source of truth and local state is overwritten, not patched.
type MessageSink interface {
	Deliver(ctx context.Context, messages []domain.Message) error
	// Reject reports a subscription failure. Access-denied errors are
	// distinguishable with errors.IsAccessDenied so the receiver can apply
	// the benign-not-found heuristic.
	Reject(ctx context.Context, err error)
}

// EventSink consumes committed domain events (projections, indexes, stats).
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ConversationStore is the storage boundary of the core: an append-only
// server-ordered message log plus a merge-upsertable metadata record per
// conversation. Send performs the atomic dual write.
type ConversationStore interface {
	// Send commits the metadata upsert and the message append together or
	// not at all, with store-assigned id and timestamp.
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	// History returns the full ordered list, ascending by CreatedAt, gated
	// by the viewer's membership and the metadata record's existence.
	History(q domain.HistoryQuery) ([]domain.Message, error)
	Metadata(id domain.ConversationID) (domain.ConversationMetadata, error)
}

// SubscriptionSource opens live subscriptions on a conversation. The sink
// synchronously receives the initial snapshot (or a classified rejection)
// before any live event. The returned cancel is idempotent; after it
// returns, no further delivery reaches the sink.
type SubscriptionSource interface {
	Subscribe(id domain.ConversationID, subscriberID string, sink MessageSink) (cancel func())
}

// Worker doesn't protect itself; supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

type Supervisor interface {
	Add(worker ...Worker) Supervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName resolves the concrete type name of a worker for logs.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type Registry interface {
	SinksFor(id domain.ConversationID) []MessageSink
	Subscribe(id domain.ConversationID, subscriberID string, sink MessageSink)
	Unsubscribe(id domain.ConversationID, subscriberID string)
}
