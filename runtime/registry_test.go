package runtime

import (
	"testing"

	"duochat/domain"
	"duochat/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRegistry_SubscribeAndLookup(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	id := domain.DeriveConversationID("alice", "bob")

	req.Nil(registry.SinksFor(id))

	aliceSink := mocks.NewMockMessageSink(ctrl)
	bobSink := mocks.NewMockMessageSink(ctrl)
	registry.Subscribe(id, "alice", aliceSink)
	registry.Subscribe(id, "bob", bobSink)

	req.Len(registry.SinksFor(id), 2)
	req.Nil(registry.SinksFor(domain.DeriveConversationID("alice", "clara")))
}

func TestRegistry_Unsubscribe_CleansUpEmptyConversations(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	id := domain.DeriveConversationID("alice", "bob")

	registry.Subscribe(id, "alice", mocks.NewMockMessageSink(ctrl))
	registry.Unsubscribe(id, "alice")

	req.Nil(registry.SinksFor(id))
	req.Empty(registry.subscribers)

	// Unsubscribing twice must be harmless.
	registry.Unsubscribe(id, "alice")
}

func TestRegistry_Resubscribe_ReplacesSink(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	id := domain.DeriveConversationID("alice", "bob")

	first := mocks.NewMockMessageSink(ctrl)
	second := mocks.NewMockMessageSink(ctrl)
	registry.Subscribe(id, "alice", first)
	registry.Subscribe(id, "alice", second)

	sinks := registry.SinksFor(id)
	req.Len(sinks, 1)
	req.Same(second, sinks[0])
}
