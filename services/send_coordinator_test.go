package services

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"duochat/domain"
	"duochat/errors"
	"duochat/mocks"
	"duochat/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSendCoordinator_EmptyDraft_IsNoop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockConversationStore(ctrl)
	// No Send expectation: any write would fail the test.

	coordinator := NewSendCoordinator(slog.Default(), store, nil, "u1", "u2", nil)
	coordinator.SetDraft("   \t ")
	coordinator.Send(context.Background())

	state := coordinator.State()
	req.False(state.IsSending)
	req.Empty(state.SendError)
}

func TestSendCoordinator_Success_ClearsDraft(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockConversationStore(ctrl)
	store.EXPECT().
		Send(gomock.Any(), domain.SendMessageCommand{SenderID: "u1", PartnerID: "u2", Content: "hello"}).
		Return(domain.Message{ID: uuid.New(), SenderID: "u1", Content: "hello", CreatedAt: time.Now().UTC()}, nil).
		Times(1)

	var sent []domain.Message
	coordinator := NewSendCoordinator(slog.Default(), store, nil, "u1", "u2",
		func(m domain.Message) { sent = append(sent, m) })

	coordinator.SetDraft("  hello  ")
	coordinator.Send(context.Background())

	state := coordinator.State()
	req.Empty(state.Draft)
	req.False(state.IsSending)
	req.Empty(state.SendError)
	req.Len(sent, 1)
	req.Equal("hello", sent[0].Content)
}

func TestSendCoordinator_Failure_RestoresDraftVerbatim(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockConversationStore(ctrl)
	store.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, goerrors.New("backend unavailable")).
		Times(1)

	coordinator := NewSendCoordinator(slog.Default(), store, nil, "u1", "u2", nil)
	coordinator.SetDraft("  important words  ")
	coordinator.Send(context.Background())

	state := coordinator.State()
	req.Equal("important words", state.Draft)
	req.False(state.IsSending)
	req.Equal(SendErrorMessage, state.SendError)
}

func TestSendCoordinator_AccessDenied_Classified(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockConversationStore(ctrl)
	store.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, fmt.Errorf("conversation: %w", errors.ErrAccessDenied)).
		Times(1)

	coordinator := NewSendCoordinator(slog.Default(), store, nil, "u1", "u2", nil)
	coordinator.SetDraft("hello")
	coordinator.Send(context.Background())

	req.Equal(SendAccessErrorMessage, coordinator.State().SendError)
}

func TestSendCoordinator_InFlightSend_IgnoresSecondCall(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockConversationStore(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	store.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.SendMessageCommand) (domain.Message, error) {
			close(started)
			<-release
			return domain.Message{ID: uuid.New()}, nil
		}).
		Times(1)

	coordinator := NewSendCoordinator(slog.Default(), store, nil, "u1", "u2", nil)
	coordinator.SetDraft("first")

	done := make(chan struct{})
	go func() {
		coordinator.Send(context.Background())
		close(done)
	}()
	<-started
	req.True(coordinator.State().IsSending)

	// The guard must drop this call entirely; the mock's Times(1) fails
	// the test if a second write slips through.
	coordinator.SetDraft("second")
	coordinator.Send(context.Background())

	close(release)
	<-done
	req.False(coordinator.State().IsSending)
}

func TestSendCoordinator_MasksContentBeforeWrite(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockConversationStore(ctrl)

	var written string
	store.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
			written = cmd.Content
			return domain.Message{ID: uuid.New()}, nil
		}).
		Times(1)

	masker, err := moderation.NewMasker([]string{"secret"}, '*')
	req.NoError(err)

	coordinator := NewSendCoordinator(slog.Default(), store, masker, "u1", "u2", nil)
	coordinator.SetDraft("the Secret plan")
	coordinator.Send(context.Background())

	req.Equal("the ****** plan", written)
}
