package server

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestApp(t *testing.T) (*fiber.App, *mocks.MockIChatService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	chatService := mocks.NewMockIChatService(ctrl)
	app := fiber.New()
	NewChatServer(slog.Default(), chatService).Register(app)
	return app, chatService
}

func jsonRequest(method, target, user, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("User", user)
	}
	return req
}

func Test_JoinParticipant_Created(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().Join("Alice").Return(nil)

	resp, err := app.Test(jsonRequest("POST", "/participants", "", `{"name":"  Alice  "}`))
	req.NoError(err)
	req.Equal(fiber.StatusCreated, resp.StatusCode)
}

func Test_JoinParticipant_Invalid_Name(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t)

	for _, body := range []string{`{}`, `{"name":""}`, `{"name":"   "}`, `not json`} {
		resp, err := app.Test(jsonRequest("POST", "/participants", "", body))
		req.NoError(err)
		req.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode, "body %s", body)
	}
}

func Test_JoinParticipant_Conflict(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().Join("Alice").Return(errors.ErrNameTaken)

	resp, err := app.Test(jsonRequest("POST", "/participants", "", `{"name":"Alice"}`))
	req.NoError(err)
	req.Equal(fiber.StatusConflict, resp.StatusCode)
}

func Test_ListParticipants_Empty_Is_JSON_Array(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().ListParticipants().Return(nil, nil)

	resp, err := app.Test(jsonRequest("GET", "/participants", "", ""))
	req.NoError(err)
	req.Equal(fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.JSONEq(`[]`, string(body))
}

func Test_ListParticipants_Storage_Error(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().ListParticipants().Return(nil, io.ErrUnexpectedEOF)

	resp, err := app.Test(jsonRequest("GET", "/participants", "", ""))
	req.NoError(err)
	req.Equal(fiber.StatusInternalServerError, resp.StatusCode)
}

func Test_PostMessage_Created(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().
		PostMessage("Alice", "Bob", "hi", domain.CategoryPrivate).
		Return(nil)

	resp, err := app.Test(jsonRequest("POST", "/messages", "Alice",
		`{"to":"Bob","text":"hi","type":"private_message"}`))
	req.NoError(err)
	req.Equal(fiber.StatusCreated, resp.StatusCode)
}

func Test_PostMessage_Invalid_Body(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t)

	bodies := []string{
		`{"text":"hi","type":"message"}`,
		`{"to":"Todos","type":"message"}`,
		`{"to":"Todos","text":"hi"}`,
		`{"to":"Todos","text":"hi","type":"status"}`,
		`{"to":"Todos","text":"hi","type":"shout"}`,
	}
	for _, body := range bodies {
		resp, err := app.Test(jsonRequest("POST", "/messages", "Alice", body))
		req.NoError(err)
		req.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode, "body %s", body)
	}
}

func Test_PostMessage_Unknown_Sender(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().
		PostMessage("Ghost", "Todos", "boo", domain.CategoryChat).
		Return(errors.ErrUnknownSender)

	resp, err := app.Test(jsonRequest("POST", "/messages", "Ghost",
		`{"to":"Todos","text":"boo","type":"message"}`))
	req.NoError(err)
	req.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func Test_ListMessages_With_Limit(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	at := time.Now().UTC()
	stored := []domain.Message{{
		ID:        uuid.New(),
		From:      "Alice",
		To:        "Bob",
		Text:      "psst",
		Category:  domain.CategoryPrivate,
		CreatedAt: at,
	}}
	chatService.EXPECT().
		ListMessages("Bob", gomock.Cond(func(limit *int) bool {
			return limit != nil && *limit == 1
		})).
		Return(stored, nil)

	resp, err := app.Test(jsonRequest("GET", "/messages?limit=1", "Bob", ""))
	req.NoError(err)
	req.Equal(fiber.StatusOK, resp.StatusCode)

	var payload []messageResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.Len(payload, 1)
	req.Equal("psst", payload[0].Text)
	req.Equal("private_message", payload[0].Type)
}

func Test_ListMessages_Without_Limit(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().
		ListMessages("Bob", gomock.Nil()).
		Return(nil, nil)

	resp, err := app.Test(jsonRequest("GET", "/messages", "Bob", ""))
	req.NoError(err)
	req.Equal(fiber.StatusOK, resp.StatusCode)
}

func Test_ListMessages_Invalid_Limit(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t)

	for _, limit := range []string{"0", "-1", "abc", "1.5"} {
		resp, err := app.Test(jsonRequest("GET", "/messages?limit="+limit, "Bob", ""))
		req.NoError(err)
		req.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode, "limit %s", limit)
	}
}

func Test_Heartbeat_OK(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().Heartbeat("Alice").Return(nil)

	resp, err := app.Test(jsonRequest("POST", "/status", "Alice", ""))
	req.NoError(err)
	req.Equal(fiber.StatusOK, resp.StatusCode)
}

func Test_Heartbeat_Missing_Header(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest("POST", "/status", "", ""))
	req.NoError(err)
	req.Equal(fiber.StatusNotFound, resp.StatusCode)
}

func Test_Heartbeat_Unknown_User(t *testing.T) {
	req := require.New(t)
	app, chatService := newTestApp(t)

	chatService.EXPECT().Heartbeat("Ghost").Return(errors.ErrUnknownParticipant)

	resp, err := app.Test(jsonRequest("POST", "/status", "Ghost", ""))
	req.NoError(err)
	req.Equal(fiber.StatusNotFound, resp.StatusCode)
}
