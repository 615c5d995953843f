package livesync

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"duochat/contract"
	"duochat/domain"
	"duochat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSubscription struct {
	id         domain.ConversationID
	subscriber string
	sink       contract.MessageSink
	canceled   bool
}

// fakeSource captures subscriptions so tests can drive deliveries by hand.
// onAttach, when set, mimics the hub's synchronous initial snapshot.
type fakeSource struct {
	mu            sync.Mutex
	subscriptions []*fakeSubscription
	onAttach      func(sink contract.MessageSink)
}

func (f *fakeSource) Subscribe(id domain.ConversationID, subscriberID string,
	sink contract.MessageSink) func() {
	f.mu.Lock()
	subscription := &fakeSubscription{id: id, subscriber: subscriberID, sink: sink}
	f.subscriptions = append(f.subscriptions, subscription)
	attach := f.onAttach
	f.mu.Unlock()

	if attach != nil {
		attach(sink)
	}
	return func() {
		f.mu.Lock()
		subscription.canceled = true
		f.mu.Unlock()
	}
}

func (f *fakeSource) last() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscriptions[len(f.subscriptions)-1]
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscriptions)
}

func message(sender, content string) domain.Message {
	return domain.Message{
		ID: uuid.New(), SenderID: sender, Content: content, CreatedAt: time.Now().UTC(),
	}
}

func TestController_BenignNotFound_SettlesEmptyReady(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{onAttach: func(sink contract.MessageSink) {
		sink.Reject(context.Background(), fmt.Errorf("conversation: %w", errors.ErrAccessDenied))
	}}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")

	state := controller.State()
	req.False(state.IsLoading)
	req.Empty(state.Messages)
	req.Empty(state.FetchError)
}

func TestController_GenuineError_SurfacesFetchError(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{onAttach: func(sink contract.MessageSink) {
		sink.Reject(context.Background(), goerrors.New("connection reset"))
	}}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")

	state := controller.State()
	req.False(state.IsLoading)
	req.Equal(FetchErrorMessage, state.FetchError)
}

func TestController_AccessDenied_AfterKnownSend_IsGenuine(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")
	controller.MarkConversationExists()
	source.last().sink.Reject(context.Background(),
		fmt.Errorf("conversation: %w", errors.ErrAccessDenied))

	req.Equal(FetchErrorMessage, controller.State().FetchError)
}

func TestController_Delivery_ReplacesMessagesWholesale(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")
	req.True(controller.State().IsLoading)

	first := []domain.Message{message("u2", "hey")}
	req.NoError(source.last().sink.Deliver(context.Background(), first))

	state := controller.State()
	req.False(state.IsLoading)
	req.Len(state.Messages, 1)

	second := []domain.Message{message("u2", "hey"), message("u1", "hello")}
	req.NoError(source.last().sink.Deliver(context.Background(), second))

	state = controller.State()
	req.Len(state.Messages, 2)
	req.Equal("hello", state.Messages[1].Content)
}

func TestController_Delivery_ClearsPriorFetchError(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")
	sink := source.last().sink
	sink.Reject(context.Background(), goerrors.New("transient"))
	req.Equal(FetchErrorMessage, controller.State().FetchError)

	req.NoError(sink.Deliver(context.Background(), []domain.Message{message("u2", "back")}))
	state := controller.State()
	req.Empty(state.FetchError)
	req.Len(state.Messages, 1)
}

func TestController_PartnerChange_TearsDownPriorSubscription(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")
	stale := source.last()
	req.NoError(stale.sink.Deliver(context.Background(), []domain.Message{message("u2", "old")}))

	controller.SetPartner("u3")
	req.True(stale.canceled)
	req.Equal(2, source.count())
	req.Equal(domain.DeriveConversationID("u1", "u3"), controller.Conversation())

	// A late delivery from the torn-down subscription must not leak into
	// the new conversation's state.
	err := stale.sink.Deliver(context.Background(), []domain.Message{message("u2", "stale")})
	req.ErrorIs(err, errors.ErrSubscriberClosed)

	state := controller.State()
	req.True(state.IsLoading)
	req.Empty(state.Messages)
}

func TestController_SamePartner_IsNoop(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")
	controller.SetPartner("u2")
	req.Equal(1, source.count())
}

func TestController_Close_StopsDeliveries(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	controller.SetPartner("u2")
	subscription := source.last()
	controller.Close()
	req.True(subscription.canceled)

	err := subscription.sink.Deliver(context.Background(), []domain.Message{message("u2", "late")})
	req.ErrorIs(err, errors.ErrSubscriberClosed)
	req.Empty(controller.State().Messages)
}

func TestController_OnChange_FiresOnDelivery(t *testing.T) {
	req := require.New(t)
	source := &fakeSource{}
	controller := NewController(slog.Default(), source, "u1")

	changes := 0
	controller.SetOnChange(func() { changes++ })
	controller.SetPartner("u2")
	req.NoError(source.last().sink.Deliver(context.Background(), nil))
	req.Equal(1, changes)
}
