package domain

// SendMessageCommand is the intent to append one message to a conversation.
// The conversation id is derived from the pair, never provided by the caller.
type SendMessageCommand struct {
	SenderID  string
	PartnerID string
	Content   string
}

func (c SendMessageCommand) ConversationID() ConversationID {
	return DeriveConversationID(c.SenderID, c.PartnerID)
}

// HistoryQuery asks for the full ordered message list of a conversation,
// gated by the viewer's membership.
type HistoryQuery struct {
	ViewerID  string
	PartnerID string
}

func (q HistoryQuery) ConversationID() ConversationID {
	return DeriveConversationID(q.ViewerID, q.PartnerID)
}
