package runtime

import (
	"sync"

	"duochat/contract"
	"duochat/domain"
)

// Registry tracks which sinks are attached to which conversation.
// The subscriber id is the viewing participant's user id; one participant
// holds at most one live subscription per conversation, matching the
// one-controller-one-subscription rule upstream.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[domain.ConversationID]map[string]contract.MessageSink
}

func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[domain.ConversationID]map[string]contract.MessageSink),
	}
}

// SinksFor returns the active sinks of a conversation, nil when none.
func (r *Registry) SinksFor(id domain.ConversationID) []contract.MessageSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attached, ok := r.subscribers[id]
	if !ok {
		return nil
	}
	sinks := make([]contract.MessageSink, 0, len(attached))
	for _, sink := range attached {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) Subscribe(id domain.ConversationID, subscriberID string, sink contract.MessageSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[id]; !ok {
		r.subscribers[id] = make(map[string]contract.MessageSink)
	}
	r.subscribers[id][subscriberID] = sink
}

// Unsubscribe detaches one subscription and drops the conversation entry
// entirely once its last subscriber leaves, so the map never grows with
// conversations nobody watches anymore.
func (r *Registry) Unsubscribe(id domain.ConversationID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attached, ok := r.subscribers[id]
	if !ok {
		return
	}
	delete(attached, subscriberID)
	if len(attached) == 0 {
		delete(r.subscribers, id)
	}
}
