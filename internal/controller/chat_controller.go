package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/pkg/serverutils"
	"ai-counselor-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	RenameSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	ListMessages(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	StreamMessage(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	userService service.IUserService
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, userService service.IUserService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		userService: userService,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("session", c.CreateSession)
	h.Get("session", c.ListSessions)
	h.Put("session/:id", c.RenameSession)
	h.Delete("session/:id", c.DeleteSession)
	h.Get("message", c.ListMessages)
	h.Post("message", c.SendMessage)
	h.Post("message/stream", c.StreamMessage)
}

// currentUser resolves the authenticated user id and lazily creates the
// local user row from the token claims.
func (c *chatController) currentUser(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, serverutils.NewUnauthorized("Token subject is not a valid user id")
	}

	email, _ := ctx.Locals("user_email").(string)
	name, _ := ctx.Locals("user_name").(string)
	if err := c.userService.EnsureUser(ctx.Context(), userId, email, name); err != nil {
		return uuid.Nil, err
	}
	return userId, nil
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	// Body is optional; an absent body means a placeholder title
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return serverutils.NewInvalidInput("Malformed request body")
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.ListSessionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return serverutils.NewInvalidInput("Malformed query parameters")
	}

	res, err := c.chatService.ListSessions(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *chatController) RenameSession(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewInvalidInput("Malformed session id")
	}

	var req dto.RenameSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewInvalidInput("Malformed request body")
	}
	req.Id = sessionId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.RenameSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success rename session", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewInvalidInput("Malformed session id")
	}

	res, err := c.chatService.DeleteSession(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", res))
}

func (c *chatController) ListMessages(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.ListMessagesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return serverutils.NewInvalidInput("Malformed query parameters")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.ListMessages(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list messages", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewInvalidInput("Malformed request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

// StreamMessage runs the exchange over SSE. Validation failures are
// still plain JSON errors; once the stream starts, failures become a
// terminal "error" event because the status line is already gone.
func (c *chatController) StreamMessage(ctx *fiber.Ctx) error {
	userId, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewInvalidInput("Malformed request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	userCtx := ctx.UserContext()

	// Ownership, content and provider credentials are checked before any
	// event-stream bytes go out, so these failures still get a real
	// HTTP status instead of a 200 with an error event.
	handle, err := c.chatService.OpenStream(userCtx, userId, &req)
	if err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		res, err := handle.Run(userCtx, func(delta string) error {
			if err := writeSSE(w, dto.StreamEvent{Type: "delta", Content: delta}); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			c.logger.Warn("Chat", "Stream exchange failed", map[string]interface{}{
				"session_id": req.ChatSessionId.String(),
				"error":      err.Error(),
			})
			writeSSE(w, dto.StreamEvent{Type: "error", Message: publicStreamError(err)})
			w.Flush()
			return
		}

		writeSSE(w, dto.StreamEvent{Type: "done", Id: res.Assistant.Id.String()})
		w.Flush()
	}))

	return nil
}

func writeSSE(w *bufio.Writer, event dto.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// publicStreamError keeps provider internals out of the event payload.
func publicStreamError(err error) string {
	if appErr, ok := err.(*serverutils.AppError); ok {
		return appErr.Message
	}
	return "Assistant is unavailable"
}
