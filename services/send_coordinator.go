package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"duochat/contract"
	"duochat/domain"
	"duochat/errors"
	"duochat/moderation"
)

// User-facing send failure texts. The access variant also covers the
// storage layer's "conversation record unreadable" class, since the store
// keeps those indistinguishable.
const (
	SendAccessErrorMessage = "You are not allowed to message this user."
	SendErrorMessage       = "Message could not be sent. Please try again."
)

// SendState mirrors the composer's transient state: the draft under edit,
// whether a send is in flight, and the last classified send failure.
type SendState struct {
	Draft     string
	IsSending bool
	SendError string
}

// SendCoordinator executes the send protocol for one conversation side.
//
// The draft is cleared optimistically the moment Send commits to writing;
// on failure it is restored to exactly the text that was captured, not
// merged with anything typed in between. At most one send is in flight per
// coordinator; extra Send calls while one is outstanding are ignored, not
// queued. The coordinator never touches visible history: the subscription
// is the sole writer of the message list.
type SendCoordinator struct {
	mu     sync.Mutex
	log    *slog.Logger
	store  contract.ConversationStore
	masker *moderation.Masker
	onSent func(domain.Message)

	selfID    string
	partnerID string

	draft     string
	isSending bool
	sendError string
}

// NewSendCoordinator builds a coordinator for selfID writing to partnerID.
// masker may be nil (no moderation); onSent may be nil.
func NewSendCoordinator(log *slog.Logger, store contract.ConversationStore,
	masker *moderation.Masker, selfID, partnerID string, onSent func(domain.Message)) *SendCoordinator {
	return &SendCoordinator{
		log:       log,
		store:     store,
		masker:    masker,
		onSent:    onSent,
		selfID:    selfID,
		partnerID: partnerID,
	}
}

func (c *SendCoordinator) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *SendCoordinator) State() SendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SendState{Draft: c.draft, IsSending: c.isSending, SendError: c.sendError}
}

// Send runs the protocol on the current draft. A whitespace-only draft and
// an in-flight send are both silent no-ops: no write happens, no error is
// raised.
func (c *SendCoordinator) Send(ctx context.Context) {
	c.mu.Lock()
	trimmed := strings.TrimSpace(c.draft)
	if trimmed == "" || c.isSending {
		c.mu.Unlock()
		return
	}
	c.isSending = true
	c.sendError = ""
	c.draft = ""
	c.mu.Unlock()

	content := trimmed
	if c.masker != nil {
		content = c.masker.Mask(content)
	}

	message, err := c.store.Send(ctx, domain.SendMessageCommand{
		SenderID:  c.selfID,
		PartnerID: c.partnerID,
		Content:   content,
	})

	c.mu.Lock()
	c.isSending = false
	if err != nil {
		c.draft = trimmed
		if errors.IsAccessDenied(err) {
			c.sendError = SendAccessErrorMessage
		} else {
			c.sendError = SendErrorMessage
		}
		c.mu.Unlock()
		c.log.Error("Send failed", "partner", c.partnerID, "error", err)
		return
	}
	c.mu.Unlock()

	if c.onSent != nil {
		c.onSent(message)
	}
}
