package event

import (
	"time"

	"duochat/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything the hub fans out to sinks and subscribers.
type DomainEvent interface {
	ConversationID() domain.ConversationID
}

// MessageSent is emitted after the dual write commits: the message exists
// in the log and the conversation metadata has been upserted.
type MessageSent struct {
	ID           uuid.UUID
	Conversation domain.ConversationID
	SenderID     string
	Content      string
	At           time.Time
}

func (m MessageSent) ConversationID() domain.ConversationID {
	return m.Conversation
}
