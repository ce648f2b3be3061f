package repositories

import (
	"chat-relay/domain"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func everything(domain.Message) bool { return true }

func newTestMessageRepository(t *testing.T) *MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func Test_Append_Assigns_ID_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	stored, err := repository.Append(domain.Message{
		From:     "Alice",
		To:       domain.Broadcast,
		Text:     "hello all",
		Category: domain.CategoryChat,
	})
	req.NoError(err)
	req.NotEmpty(stored.ID)
	req.False(stored.CreatedAt.IsZero())

	fetched, err := repository.Query(everything, 0)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(stored, fetched[0])
}

func Test_Query_Newest_First(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	at := time.Now().UTC()
	for i, text := range []string{"first", "second", "third"} {
		_, err := repository.Append(domain.Message{
			From:      "Alice",
			To:        domain.Broadcast,
			Text:      text,
			Category:  domain.CategoryChat,
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	fetched, err := repository.Query(everything, 0)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal("third", fetched[0].Text)
	req.Equal("second", fetched[1].Text)
	req.Equal("first", fetched[2].Text)
}

func Test_Query_Equal_Timestamps_Newest_Insertion_Wins(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	at := time.Now().UTC()
	for _, text := range []string{"first", "second", "third"} {
		_, err := repository.Append(domain.Message{
			From:      "Alice",
			To:        domain.Broadcast,
			Text:      text,
			Category:  domain.CategoryChat,
			CreatedAt: at,
		})
		req.NoError(err)
	}

	fetched, err := repository.Query(everything, 1)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("third", fetched[0].Text)
}

func Test_Query_Applies_Limit_After_Filter(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	at := time.Now().UTC()
	messages := []domain.Message{
		{From: "Alice", To: domain.Broadcast, Text: "public", Category: domain.CategoryChat, CreatedAt: at},
		{From: "Alice", To: "Bob", Text: "psst", Category: domain.CategoryPrivate, CreatedAt: at.Add(time.Second)},
		{From: "Clara", To: domain.Broadcast, Text: "newest public", Category: domain.CategoryChat, CreatedAt: at.Add(2 * time.Second)},
	}
	for _, message := range messages {
		_, err := repository.Append(message)
		req.NoError(err)
	}

	// The limit counts matching messages, not scanned ones.
	fetched, err := repository.Query(func(m domain.Message) bool { return m.IsBroadcast() }, 2)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("newest public", fetched[0].Text)
	req.Equal("public", fetched[1].Text)
}

func Test_Query_Empty_Log(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	fetched, err := repository.Query(everything, 10)
	req.NoError(err)
	req.Empty(fetched)
}
