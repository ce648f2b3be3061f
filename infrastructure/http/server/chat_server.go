// Package server exposes the chat operations over HTTP/JSON.
// It owns request parsing and validation and translates domain outcomes
// to status codes; all chat semantics live in the service layer.
package server

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// userHeader carries the caller's identity; a bare name, no credentials.
const userHeader = "User"

type ChatServer struct {
	chatService services.IChatService
	log         *slog.Logger
	validate    *validator.Validate
}

func NewChatServer(log *slog.Logger, chatService services.IChatService) *ChatServer {
	return &ChatServer{chatService: chatService, log: log, validate: validator.New()}
}

func (s *ChatServer) Register(app *fiber.App) {
	app.Post("/participants", s.JoinParticipant)
	app.Get("/participants", s.ListParticipants)
	app.Post("/messages", s.PostMessage)
	app.Get("/messages", s.ListMessages)
	app.Post("/status", s.Heartbeat)
}

type joinRequest struct {
	Name string `json:"name" validate:"required"`
}

type postMessageRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=message private_message"`
}

type participantResponse struct {
	Name         string    `json:"name"`
	LastActivity time.Time `json:"lastActivity"`
}

type messageResponse struct {
	ID   string    `json:"id"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Text string    `json:"text"`
	Type string    `json:"type"`
	Time time.Time `json:"time"`
}

func (s *ChatServer) JoinParticipant(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.SendStatus(fiber.StatusUnprocessableEntity)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return c.SendStatus(fiber.StatusUnprocessableEntity)
	}

	switch err := s.chatService.Join(req.Name); err {
	case nil:
		return c.SendStatus(fiber.StatusCreated)
	case errors.ErrNameTaken:
		return c.SendStatus(fiber.StatusConflict)
	default:
		s.log.Error("Join failed", "participant", req.Name, "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}

func (s *ChatServer) ListParticipants(c *fiber.Ctx) error {
	participants, err := s.chatService.ListParticipants()
	if err != nil {
		s.log.Error("Listing participants failed", "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(lo.Map(participants, func(p domain.Participant, _ int) participantResponse {
		return participantResponse{Name: p.Name, LastActivity: p.LastActivity}
	}))
}

func (s *ChatServer) PostMessage(c *fiber.Ctx) error {
	var req postMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.SendStatus(fiber.StatusUnprocessableEntity)
	}
	if err := s.validate.Struct(req); err != nil {
		return c.SendStatus(fiber.StatusUnprocessableEntity)
	}

	from := c.Get(userHeader)
	switch err := s.chatService.PostMessage(from, req.To, req.Text, domain.Category(req.Type)); err {
	case nil:
		return c.SendStatus(fiber.StatusCreated)
	case errors.ErrUnknownSender, errors.ErrCategoryNotPostable:
		return c.SendStatus(fiber.StatusUnprocessableEntity)
	default:
		s.log.Error("Posting message failed", "from", from, "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}

func (s *ChatServer) ListMessages(c *fiber.Ctx) error {
	var limit *int
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusUnprocessableEntity).
				JSON(fiber.Map{"error": "invalid limit parameter"})
		}
		limit = &parsed
	}

	user := c.Get(userHeader)
	messages, err := s.chatService.ListMessages(user, limit)
	if err != nil {
		s.log.Error("Listing messages failed", "user", user, "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:   m.ID.String(),
			From: m.From,
			To:   m.To,
			Text: m.Text,
			Type: string(m.Category),
			Time: m.CreatedAt,
		}
	}))
}

func (s *ChatServer) Heartbeat(c *fiber.Ctx) error {
	user := c.Get(userHeader)
	if user == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	switch err := s.chatService.Heartbeat(user); err {
	case nil:
		return c.SendStatus(fiber.StatusOK)
	case errors.ErrUnknownParticipant:
		return c.SendStatus(fiber.StatusNotFound)
	default:
		s.log.Error("Heartbeat failed", "user", user, "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}
