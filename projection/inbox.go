// Package projection builds local read models from observed events.
// Projections are replaced, never patched, and emit nothing themselves.
package projection

import (
	"context"
	"sort"
	"sync"
	"time"

	"duochat/domain"
	"duochat/domain/event"

	"github.com/abadojack/whatlanggo"
)

// Preview is one conversation-list row: who, what was said last, when,
// and the detected language of the preview text as a localization hint
// for the rendering layer.
type Preview struct {
	Conversation domain.ConversationID
	Participants [2]string
	LastSender   string
	LastMessage  string
	LastAt       time.Time
	Language     string
}

// Inbox folds MessageSent events into an always-current conversation list,
// most recently active first. It is an event sink fed by the hub's fanout.
type Inbox struct {
	mu       sync.RWMutex
	previews map[domain.ConversationID]Preview
}

func NewInbox() *Inbox {
	return &Inbox{previews: make(map[domain.ConversationID]Preview)}
}

func (i *Inbox) Consume(_ context.Context, e event.DomainEvent) error {
	sent, ok := e.(event.MessageSent)
	if !ok {
		return nil
	}

	a, b := sent.Conversation.Participants()
	preview := Preview{
		Conversation: sent.Conversation,
		Participants: [2]string{a, b},
		LastSender:   sent.SenderID,
		LastMessage:  sent.Content,
		LastAt:       sent.At,
		Language:     detectLanguage(sent.Content),
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	// Out-of-order events can reach the projection after a drop+catchup;
	// an older message must not overwrite a newer preview.
	if existing, ok := i.previews[sent.Conversation]; ok && existing.LastAt.After(sent.At) {
		return nil
	}
	i.previews[sent.Conversation] = preview
	return nil
}

// Previews returns the inbox sorted by last activity, newest first.
func (i *Inbox) Previews() []Preview {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Preview, 0, len(i.previews))
	for _, preview := range i.previews {
		out = append(out, preview)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].LastAt.After(out[b].LastAt)
	})
	return out
}

// detectLanguage returns an ISO 639-3 code, or empty when detection is not
// confident enough to be worth forwarding to the UI.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
