package repositories

import (
	"context"
	"log/slog"
	"time"

	"duochat/domain"
	"duochat/domain/event"

	"github.com/blugelabs/bluge"
)

// MessageHit is one full-text search result.
type MessageHit struct {
	MessageID    string
	Conversation domain.ConversationID
	SenderID     string
	Content      string
	CreatedAt    time.Time
}

// MessageIndex maintains a bluge full-text index over committed messages.
// It plugs into the hub as an event sink: indexing happens after the dual
// write, outside the storage transaction, so a lost index entry can only
// ever make search incomplete, never message history.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Consume indexes MessageSent events; other events are ignored.
func (x *MessageIndex) Consume(_ context.Context, e event.DomainEvent) error {
	sent, ok := e.(event.MessageSent)
	if !ok {
		return nil
	}
	doc := bluge.NewDocument(sent.ID.String()).
		AddField(bluge.NewKeywordField("conversation", string(sent.Conversation)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", sent.SenderID).StoreValue()).
		AddField(bluge.NewTextField("content", sent.Content).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", sent.At).StoreValue())
	return x.writer.Update(doc.ID(), doc)
}

// Search runs a match query on message content, restricted to one
// conversation. Results come back by descending relevance.
func (x *MessageIndex) Search(ctx context.Context, id domain.ConversationID,
	terms string, limit int) ([]MessageHit, error) {
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			x.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(id)).SetField("conversation")).
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []MessageHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit := MessageHit{}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "conversation":
				hit.Conversation = domain.ConversationID(value)
			case "sender":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			case "created_at":
				if at, parseErr := bluge.DecodeDateTime(value); parseErr == nil {
					hit.CreatedAt = at.UTC()
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
