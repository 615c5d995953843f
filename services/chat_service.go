package services

import (
	"context"
	"log/slog"

	"duochat/domain"
	"duochat/livesync"
	"duochat/moderation"
	"duochat/repositories"
	"duochat/runtime"
)

type IChatService interface {
	Open(selfID, partnerID string) *Conversation
	History(q domain.HistoryQuery) ([]domain.Message, error)
	Search(ctx context.Context, viewerID, partnerID, terms string, limit int) ([]repositories.MessageHit, error)
}

// ChatService is the application facade over the hub: it opens
// conversation sessions and answers one-shot queries.
type ChatService struct {
	log    *slog.Logger
	hub    *runtime.Hub
	masker *moderation.Masker
}

func NewChatService(log *slog.Logger, hub *runtime.Hub, masker *moderation.Masker) *ChatService {
	return &ChatService{log: log, hub: hub, masker: masker}
}

// Conversation bundles the two stateful halves of one open chat screen:
// the live view and the composer.
type Conversation struct {
	Controller  *livesync.Controller
	Coordinator *SendCoordinator
}

func (c *Conversation) Close() {
	c.Controller.Close()
}

// Open wires a controller and coordinator for the selfID/partnerID pair
// and starts the subscription. A successful send marks the conversation
// as existing on the controller, closing the benign-not-found window.
func (s *ChatService) Open(selfID, partnerID string) *Conversation {
	controller := livesync.NewController(s.log, s.hub, selfID)
	coordinator := NewSendCoordinator(s.log, s.hub, s.masker, selfID, partnerID,
		func(domain.Message) {
			controller.MarkConversationExists()
		})
	controller.SetPartner(partnerID)
	return &Conversation{Controller: controller, Coordinator: coordinator}
}

func (s *ChatService) History(q domain.HistoryQuery) ([]domain.Message, error) {
	return s.hub.History(q)
}

func (s *ChatService) Search(ctx context.Context, viewerID, partnerID, terms string,
	limit int) ([]repositories.MessageHit, error) {
	id := domain.DeriveConversationID(viewerID, partnerID)
	return s.hub.SearchMessages(ctx, viewerID, id, terms, limit)
}
