package projection

import (
	"context"
	"testing"
	"time"

	"duochat/domain"
	"duochat/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sent(conversation domain.ConversationID, sender, content string, at time.Time) event.MessageSent {
	return event.MessageSent{
		ID: uuid.New(), Conversation: conversation, SenderID: sender, Content: content, At: at,
	}
}

func TestInbox_SortsByLastActivity(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	ctx := context.Background()
	now := time.Now().UTC()

	aliceBob := domain.DeriveConversationID("alice", "bob")
	aliceClara := domain.DeriveConversationID("alice", "clara")

	req.NoError(inbox.Consume(ctx, sent(aliceBob, "bob", "old news", now)))
	req.NoError(inbox.Consume(ctx, sent(aliceClara, "clara", "fresh news", now.Add(time.Minute))))

	previews := inbox.Previews()
	req.Len(previews, 2)
	req.Equal(aliceClara, previews[0].Conversation)
	req.Equal("fresh news", previews[0].LastMessage)
	req.Equal(aliceBob, previews[1].Conversation)
}

func TestInbox_OlderEventDoesNotOverwriteNewerPreview(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	ctx := context.Background()
	now := time.Now().UTC()

	conversation := domain.DeriveConversationID("alice", "bob")
	req.NoError(inbox.Consume(ctx, sent(conversation, "bob", "newer", now.Add(time.Second))))
	req.NoError(inbox.Consume(ctx, sent(conversation, "alice", "older", now)))

	previews := inbox.Previews()
	req.Len(previews, 1)
	req.Equal("newer", previews[0].LastMessage)
}

func TestInbox_DetectsPreviewLanguage(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	now := time.Now().UTC()

	conversation := domain.DeriveConversationID("alice", "bob")
	content := "The quick brown fox jumps over the lazy dog while everyone watches quietly"
	req.NoError(inbox.Consume(context.Background(), sent(conversation, "alice", content, now)))

	previews := inbox.Previews()
	req.Len(previews, 1)
	req.Equal("eng", previews[0].Language)
}
