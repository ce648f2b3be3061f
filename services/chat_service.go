//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"log/slog"
	"time"
)

const (
	joinedText = "joined"
)

type IChatService interface {
	Join(name string) error
	Heartbeat(name string) error
	PostMessage(from, to, text string, category domain.Category) error
	ListParticipants() ([]domain.Participant, error)
	ListMessages(user string, limit *int) ([]domain.Message, error)
}

// ChatService implements the gateway-facing chat operations on top of
// the participant registry and the message log.
type ChatService struct {
	log          *slog.Logger
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
}

func NewChatService(log *slog.Logger,
	participants repositories.IParticipantRepository,
	messages repositories.IMessageRepository) *ChatService {
	return &ChatService{log: log, participants: participants, messages: messages}
}

// Join registers a participant and broadcasts a status notice.
// Registration and the notice are two independent transactions: if the
// append fails, the participant stays registered and the error is
// surfaced. The window is narrow and the sweeper eventually evicts a
// participant whose caller gave up, so it is documented rather than
// papered over with a distributed transaction.
func (s *ChatService) Join(name string) error {
	joined, err := s.participants.Join(name, time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = s.messages.Append(domain.Message{
		From:     joined.Name,
		To:       domain.Broadcast,
		Text:     joinedText,
		Category: domain.CategoryStatus,
	})
	if err != nil {
		s.log.Error("Participant joined but the join notice was not recorded",
			"participant", joined.Name, "err", err)
		return fmt.Errorf("join notice append failed: %w", err)
	}
	return nil
}

// Heartbeat refreshes the caller's activity window.
func (s *ChatService) Heartbeat(name string) error {
	return s.participants.Touch(name, time.Now().UTC())
}

// PostMessage appends a user message after checking that the sender is
// currently registered. Recipients are deliberately not checked: sending
// to a name that already left is allowed.
func (s *ChatService) PostMessage(from, to, text string, category domain.Category) error {
	if !category.Postable() {
		return errors.ErrCategoryNotPostable
	}

	present, err := s.participants.Exists(from)
	if err != nil {
		return err
	}
	if !present {
		return errors.ErrUnknownSender
	}

	_, err = s.messages.Append(domain.Message{
		From:     from,
		To:       to,
		Text:     text,
		Category: category,
	})
	return err
}

func (s *ChatService) ListParticipants() ([]domain.Participant, error) {
	return s.participants.List()
}

// ListMessages returns the newest-first slice of the log the user is
// entitled to see. With a limit, the full visibility rule applies; with
// no limit, only broadcast-class messages are returned, so a passive
// public view can never surface private traffic.
func (s *ChatService) ListMessages(user string, limit *int) ([]domain.Message, error) {
	if limit == nil {
		return s.messages.Query(domain.Message.IsBroadcast, 0)
	}
	return s.messages.Query(func(m domain.Message) bool {
		return m.VisibleTo(user)
	}, *limit)
}
