//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix  = "msg:"
	messageSeqKey  = "seq:msg"
	seqBandwidth   = 64
	maxPaddedNanos = "9999999999999999999"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Query(visible func(domain.Message) bool, limit int) ([]domain.Message, error)
}

// MessageRepository persists the append-only message log in BadgerDB.
// Messages are never updated or deleted.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSeqKey), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence init failed: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// Close releases the unused tail of the insertion sequence.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// diskMessage is the stored representation, timestamp as UnixNano.
type diskMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	At   int64  `json:"at"`
}

// Append stores a message, assigning ID and CreatedAt when absent.
// The key is formatted as "msg:{timestamp_padded}:{seq_padded}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Break ties between equal timestamps with the insertion sequence,
//     so the most recently appended record sorts last.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	seq, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("message sequence failed: %w", err)
	}

	key := fmt.Sprintf("%s%019d:%012d", messagePrefix, message.CreatedAt.UnixNano(), seq)
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Query walks the log newest-first and collects messages accepted by the
// visible predicate, at most limit of them. limit <= 0 means unbounded;
// callers exposing a user-supplied limit must validate it beforehand.
// Thanks to the padded timestamp+sequence keys, a reverse prefix scan
// yields exactly the required order with no sort step.
func (m *MessageRepository) Query(visible func(domain.Message) bool, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		// Seek past the newest possible key, then walk backwards.
		seekKey := append([]byte(messagePrefix), []byte(maxPaddedNanos)...)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}

			var disk diskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}

			message, err := toMessage(disk)
			if err != nil {
				return err
			}
			if visible(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:   message.ID.String(),
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Type: string(message.Category),
		At:   message.CreatedAt.UnixNano(),
	}
}

func toMessage(disk diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		From:      disk.From,
		To:        disk.To,
		Text:      disk.Text,
		Category:  domain.Category(disk.Type),
		CreatedAt: time.Unix(0, disk.At).UTC(),
	}, nil
}
