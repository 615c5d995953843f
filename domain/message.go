// Package domain contains core concepts of the two-party chat system.
// This file defines Message entities and related rules.
// Messages are immutable once appended and are never deleted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one immutable chat entry.
// ID and CreatedAt are assigned by the store at append time; CreatedAt is
// monotonic per conversation under the store's ordering guarantee.
type Message struct {
	ID        uuid.UUID
	SenderID  string
	Content   string
	CreatedAt time.Time
}
