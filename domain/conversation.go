// Package domain contains core concepts of the two-party chat system.
// This file defines conversation identity and metadata.
// No runtime, storage, or UI logic should be added here.
package domain

import (
	"strings"
	"time"
)

// Separator joins the two sorted participant ids into a conversation id.
const Separator = "_"

type ConversationID string

// DeriveConversationID builds the canonical id for a pair of participants.
// The ids are sorted lexicographically before joining, so both sides of the
// conversation resolve to the same key without any directory lookup:
// DeriveConversationID(a, b) == DeriveConversationID(b, a).
func DeriveConversationID(participantA, participantB string) ConversationID {
	if participantB < participantA {
		participantA, participantB = participantB, participantA
	}
	return ConversationID(participantA + Separator + participantB)
}

// Participants splits a conversation id back into its sorted participant pair.
func (id ConversationID) Participants() (string, string) {
	left, right, _ := strings.Cut(string(id), Separator)
	return left, right
}

// Has reports whether the given participant belongs to the conversation.
func (id ConversationID) Has(participantID string) bool {
	a, b := id.Participants()
	return participantID == a || participantID == b
}

// ConversationMetadata is the conversation container record.
// It is created lazily by the first send (merge-upsert) and refreshed on
// every subsequent send so conversation-list previews stay current.
// Access to the message log is keyed off this record's existence.
type ConversationMetadata struct {
	ID            ConversationID
	Participants  [2]string
	LastMessage   string
	LastMessageAt time.Time
}
