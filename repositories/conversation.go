package repositories

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"duochat/domain"
	"duochat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	metadataPrefix = "conv:"
	messagePrefix  = "msg:"
)

type IConversationRepository interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(q domain.HistoryQuery) ([]domain.Message, error)
	Metadata(id domain.ConversationID) (domain.ConversationMetadata, error)
	Snapshot(id domain.ConversationID) ([]domain.Message, error)
}

// ConversationRepository persists two-party conversations in BadgerDB.
//
// Two key families share the database:
//
//	conv:{conversation_id}                      -> metadata record (JSON)
//	msg:{conversation_id}:{timestamp}:{uuid}    -> one message (JSON)
//
// The message timestamp is 19-digit zero-padded UnixNano so lexicographic
// key order equals chronological order; the uuid suffix disconnects
// collisions when two messages land on the same nanosecond.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

type diskMetadata struct {
	Participants [2]string `json:"participants"`
	LastMessage  string    `json:"last_message"`
	LastAt       int64     `json:"last_at"`
}

type diskMessage struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	At      int64  `json:"at"`
}

func metadataKey(id domain.ConversationID) []byte {
	return []byte(metadataPrefix + string(id))
}

func messageKey(id domain.ConversationID, at time.Time, msgID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, id, at.UnixNano(), msgID))
}

// Send performs the atomic dual write: the metadata upsert and the
// message append commit in a single Badger transaction, so a conversation
// can never hold a message without its access-bearing metadata record or
// the other way around. The id and timestamp are assigned here, never by
// the caller. Calling Send unconditionally on every message is what lazily
// creates the conversation on first contact, without a read-then-write
// race between both participants.
func (r *ConversationRepository) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	message := domain.Message{
		ID:        uuid.New(),
		SenderID:  cmd.SenderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	conversationID := cmd.ConversationID()

	err := r.db.Update(func(txn *badger.Txn) error {
		if err := r.upsertMetadata(txn, conversationID, message); err != nil {
			return err
		}
		bytes, err := json.Marshal(diskMessage{
			ID:      message.ID.String(),
			Sender:  message.SenderID,
			Content: message.Content,
			At:      message.CreatedAt.UnixNano(),
		})
		if err != nil {
			return err
		}
		return txn.Set(messageKey(conversationID, message.CreatedAt, message.ID), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("dual write failed: %w", err)
	}
	return message, nil
}

// upsertMetadata rewrites the metadata record inside the caller's
// transaction, creating it on the first message. Write-only on purpose:
// every field of the record is refreshed by every send, and a blind Set
// keeps the key out of the transaction's read set, so overlapping sends
// from both participants commit without a Badger conflict.
func (r *ConversationRepository) upsertMetadata(txn *badger.Txn, id domain.ConversationID,
	message domain.Message) error {
	a, b := id.Participants()
	bytes, err := json.Marshal(diskMetadata{
		Participants: [2]string{a, b},
		LastMessage:  message.Content,
		LastAt:       message.CreatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	return txn.Set(metadataKey(id), bytes)
}

// History returns the conversation's full message list, ascending by
// CreatedAt. The read is gated: a missing metadata record and a viewer who
// is not a participant both fail with ErrAccessDenied. The two cases stay
// indistinguishable on purpose; callers apply the benign-not-found
// heuristic on top.
func (r *ConversationRepository) History(q domain.HistoryQuery) ([]domain.Message, error) {
	id := q.ConversationID()
	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		if err := checkAccess(txn, id, q.ViewerID); err != nil {
			return err
		}
		return collectMessages(txn, id, &raw)
	})
	if err != nil {
		return nil, err
	}
	return decodeMessages(raw)
}

// Snapshot reads the message list without the access gate. It exists for
// the hub's fanout path, which re-reads state on behalf of subscribers that
// already passed the gate when they attached.
func (r *ConversationRepository) Snapshot(id domain.ConversationID) ([]domain.Message, error) {
	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		return collectMessages(txn, id, &raw)
	})
	if err != nil {
		return nil, err
	}
	return decodeMessages(raw)
}

func (r *ConversationRepository) Metadata(id domain.ConversationID) (domain.ConversationMetadata, error) {
	var record diskMetadata
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(id))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("conversation %s: %w", id, errors.ErrAccessDenied)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return domain.ConversationMetadata{}, err
	}
	return domain.ConversationMetadata{
		ID:            id,
		Participants:  record.Participants,
		LastMessage:   record.LastMessage,
		LastMessageAt: time.Unix(0, record.LastAt).UTC(),
	}, nil
}

// checkAccess enforces the storage access rule: the metadata record must
// exist and the viewer must be one of its participants.
func checkAccess(txn *badger.Txn, id domain.ConversationID, viewerID string) error {
	item, err := txn.Get(metadataKey(id))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("conversation %s: %w", id, errors.ErrAccessDenied)
	}
	if err != nil {
		return err
	}
	var record diskMetadata
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	}); err != nil {
		return err
	}
	if viewerID != record.Participants[0] && viewerID != record.Participants[1] {
		return fmt.Errorf("viewer %s on conversation %s: %w", viewerID, id, errors.ErrAccessDenied)
	}
	return nil
}

// collectMessages prefix-scans the message keys in their natural order.
// Thanks to the padded timestamp the iteration is already chronological,
// so no local re-sort happens anywhere downstream.
func collectMessages(txn *badger.Txn, id domain.ConversationID, out *[][]byte) error {
	prefix := []byte(messagePrefix + string(id) + ":")
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(func(value []byte) error {
			buf := make([]byte, len(value))
			copy(buf, value)
			*out = append(*out, buf)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func decodeMessages(raw [][]byte) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(raw))
	for _, bytes := range raw {
		var record diskMessage
		if err := json.Unmarshal(bytes, &record); err != nil {
			return nil, err
		}
		parsedID, err := uuid.Parse(record.ID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, domain.Message{
			ID:        parsedID,
			SenderID:  record.Sender,
			Content:   record.Content,
			CreatedAt: time.Unix(0, record.At).UTC(),
		})
	}
	return messages, nil
}

// Previews lists every stored conversation metadata record, most recent
// first. Used by the inspect tool and the inbox bootstrap.
func (r *ConversationRepository) Previews() ([]domain.ConversationMetadata, error) {
	var out []domain.ConversationMetadata
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(metadataPrefix)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := domain.ConversationID(item.Key()[len(metadataPrefix):])
			var record diskMetadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			out = append(out, domain.ConversationMetadata{
				ID:            id,
				Participants:  record.Participants,
				LastMessage:   record.LastMessage,
				LastMessageAt: time.Unix(0, record.LastAt).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out = lo.Filter(out, func(m domain.ConversationMetadata, _ int) bool {
		return m.Participants[0] != "" && m.Participants[1] != ""
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}
