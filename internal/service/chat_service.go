package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/pkg/serverutils"
	"ai-counselor-be/internal/repository/memory"
	"ai-counselor-be/internal/repository/pagination"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/chat/history"
	"ai-counselor-be/pkg/chat/title"
	"ai-counselor-be/pkg/events"
	"ai-counselor-be/pkg/llm"
	"ai-counselor-be/pkg/store"

	"github.com/google/uuid"
)

// IChatService defines the chat service interface
type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.SessionDTO, error)
	ListSessions(ctx context.Context, userId uuid.UUID, request *dto.ListSessionsRequest) (*dto.ListSessionsResponse, error)
	RenameSession(ctx context.Context, userId uuid.UUID, request *dto.RenameSessionRequest) (*dto.SessionDTO, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.DeleteSessionResponse, error)
	ListMessages(ctx context.Context, userId uuid.UUID, request *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error)
	SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	OpenStream(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (StreamHandle, error)
	StreamMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest, onDelta func(string) error) (*dto.SendMessageResponse, error)
}

// StreamHandle is a streamed exchange whose validation already passed.
// It lets the transport report pre-stream failures with a proper status
// before committing to a streaming response body.
type StreamHandle interface {
	Run(ctx context.Context, onDelta func(string) error) (*dto.SendMessageResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	historyLoader    *history.Loader
	titleStates      *memory.TitleStateRepository
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	historyLoader *history.Loader,
	titleStates *memory.TitleStateRepository,
	publisherService IPublisherService,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		historyLoader:    historyLoader,
		titleStates:      titleStates,
		publisherService: publisherService,
		logger:           log,
	}
}

// --- Sessions ---

func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.SessionDTO, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sessionTitle := strings.TrimSpace(request.Title)
	if sessionTitle == "" {
		sessionTitle = constant.DefaultSessionTitle
	}

	session := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     sessionTitle,
		CreatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	if sessionTitle != constant.DefaultSessionTitle {
		cs.titleStates.Save(&store.TitleState{SessionID: session.Id.String(), Customized: true})
	}

	cs.publishEvent(ctx, events.NewSessionCreated(session.Id.String(), userId.String(), session.Title))

	return sessionToDTO(&session), nil
}

func (cs *chatService) ListSessions(ctx context.Context, userId uuid.UUID, request *dto.ListSessionsRequest) (*dto.ListSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	limit := pagination.Clamp(request.Limit, constant.SessionListDefaultLimit, constant.SessionListMaxLimit)

	specs := []specification.Specification{
		specification.OwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.OrderBy{Field: "id", Desc: true},
		specification.Pagination{Limit: limit + 1},
	}

	if request.Cursor != "" {
		anchorId, err := uuid.Parse(request.Cursor)
		if err != nil {
			return nil, serverutils.NewInvalidInput("Malformed cursor")
		}
		anchor, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: anchorId},
			specification.OwnedBy{UserID: userId},
		)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, serverutils.NewInvalidInput("Unknown cursor")
		}
		specs = append(specs, specification.CursorFrom{CreatedAt: anchor.CreatedAt, ID: anchor.Id, Desc: true})
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	page := pagination.Cut(sessions, limit, func(s *entity.ChatSession) string { return s.Id.String() })

	response := &dto.ListSessionsResponse{
		Sessions:   make([]dto.SessionDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, s := range page.Items {
		response.Sessions = append(response.Sessions, *sessionToDTO(s))
	}
	return response, nil
}

func (cs *chatService) RenameSession(ctx context.Context, userId uuid.UUID, request *dto.RenameSessionRequest) (*dto.SessionDTO, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	newTitle := strings.TrimSpace(request.Title)
	if newTitle == "" {
		return nil, serverutils.NewInvalidInput("Title must not be blank")
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.Id},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFound("Session not found")
	}

	session.Title = newTitle
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}

	// A manual rename permanently opts the session out of auto-titling
	cs.titleStates.Save(&store.TitleState{SessionID: session.Id.String(), Customized: true})

	cs.publishEvent(ctx, events.NewSessionRenamed(session.Id.String(), userId.String(), session.Title))

	return sessionToDTO(session), nil
}

func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.DeleteSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		// Deleting an absent or foreign session is not an error; the
		// caller just learns nothing was removed.
		return &dto.DeleteSessionResponse{Ok: false}, nil
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return nil, err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.titleStates.Delete(sessionId.String())
	cs.publishEvent(ctx, events.NewSessionDeleted(sessionId.String(), userId.String()))

	return &dto.DeleteSessionResponse{Ok: true}, nil
}

// --- Messages ---

func (cs *chatService) ListMessages(ctx context.Context, userId uuid.UUID, request *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.ownedSession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	limit := pagination.Clamp(request.Limit, constant.MessageListDefaultLimit, constant.MessageListMaxLimit)

	specs := []specification.Specification{
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
		specification.OrderBy{Field: "id", Desc: false},
		specification.Pagination{Limit: limit + 1},
	}

	if request.Cursor != "" {
		anchorId, err := uuid.Parse(request.Cursor)
		if err != nil {
			return nil, serverutils.NewInvalidInput("Malformed cursor")
		}
		anchor, err := uow.ChatMessageRepository().FindOne(ctx,
			specification.ByID{ID: anchorId},
			specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, serverutils.NewInvalidInput("Unknown cursor")
		}
		specs = append(specs, specification.CursorFrom{CreatedAt: anchor.CreatedAt, ID: anchor.Id})
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	page := pagination.Cut(messages, limit, func(m *entity.ChatMessage) string { return m.Id.String() })

	response := &dto.ListMessagesResponse{
		Messages:   make([]dto.MessageDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, m := range page.Items {
		response.Messages = append(response.Messages, dto.MessageDTO{
			Id:            m.Id,
			ChatSessionId: m.ChatSessionId,
			SenderId:      m.SenderId,
			Role:          m.Role,
			Content:       m.Content,
			CreatedAt:     m.CreatedAt,
		})
	}
	return response, nil
}

func (cs *chatService) SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	session, userMessage, chatHistory, err := cs.beginExchange(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	reply, err := cs.llmProvider.Chat(ctx, chatHistory)
	if err != nil {
		return nil, mapProviderError(err)
	}

	return cs.completeExchange(ctx, session, userMessage, chatHistory, reply)
}

// OpenStream validates the request, persists the user message and opens
// the provider stream. Failures here happen before any response bytes
// are written, so the caller can still send a normal error status.
func (cs *chatService) OpenStream(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (StreamHandle, error) {
	session, userMessage, chatHistory, err := cs.beginExchange(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	stream, err := cs.llmProvider.ChatStream(ctx, chatHistory)
	if err != nil {
		return nil, mapProviderError(err)
	}

	return &streamHandle{
		service:     cs,
		session:     session,
		userMessage: userMessage,
		chatHistory: chatHistory,
		stream:      stream,
	}, nil
}

// StreamMessage runs one exchange with the reply delivered incrementally
// through onDelta. When onDelta fails the client is gone, so the partial
// reply is discarded rather than persisted.
func (cs *chatService) StreamMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest, onDelta func(string) error) (*dto.SendMessageResponse, error) {
	handle, err := cs.OpenStream(ctx, userId, request)
	if err != nil {
		return nil, err
	}
	return handle.Run(ctx, onDelta)
}

type streamHandle struct {
	service     *chatService
	session     *entity.ChatSession
	userMessage *entity.ChatMessage
	chatHistory []llm.Message
	stream      llm.Stream
}

func (h *streamHandle) Run(ctx context.Context, onDelta func(string) error) (*dto.SendMessageResponse, error) {
	defer h.stream.Close()

	var reply strings.Builder
	for {
		delta, err := h.stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mapProviderError(err)
		}
		reply.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return nil, err
		}
	}

	return h.service.completeExchange(ctx, h.session, h.userMessage, h.chatHistory, reply.String())
}

// beginExchange validates the request, persists the user message and
// loads the model context. The user message is committed before the
// provider is called so it survives a downstream failure.
func (cs *chatService) beginExchange(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*entity.ChatSession, *entity.ChatMessage, []llm.Message, error) {
	content := strings.TrimSpace(request.Content)
	if content == "" {
		return nil, nil, nil, serverutils.NewInvalidInput("Message content must not be blank")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.ownedSession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, nil, nil, err
	}

	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		SenderId:      userId,
		Role:          constant.ChatMessageRoleUser,
		Content:       content,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, nil, nil, err
	}

	// Loaded after the insert so the new message is part of the context
	chatHistory, err := cs.historyLoader.LoadConversationHistory(ctx, session.Id)
	if err != nil {
		return nil, nil, nil, err
	}

	return session, &userMessage, chatHistory, nil
}

func (cs *chatService) completeExchange(ctx context.Context, session *entity.ChatSession, userMessage *entity.ChatMessage, chatHistory []llm.Message, reply string) (*dto.SendMessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	// Assistant turns carry the acting user as sender; the assistant
	// has no identity of its own.
	assistantMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		SenderId:      session.UserId,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       reply,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		return nil, err
	}

	cs.maybeAutoTitle(ctx, session, chatHistory, userMessage.Content)

	cs.publishEvent(ctx, events.NewExchangeCompleted(session.Id.String(), session.UserId.String(), assistantMessage.Id.String()))

	return &dto.SendMessageResponse{
		UserId: userMessage.Id,
		Assistant: dto.AssistantReplyDTO{
			Id:      assistantMessage.Id,
			Content: assistantMessage.Content,
		},
	}, nil
}

// maybeAutoTitle derives a title from the first user message of the
// conversation once a placeholder-titled session completes an exchange.
// Titling is cosmetic; every failure here is logged and swallowed.
func (cs *chatService) maybeAutoTitle(ctx context.Context, session *entity.ChatSession, chatHistory []llm.Message, fallbackSeed string) {
	if state, found := cs.titleStates.Get(session.Id.String()); found && state.Customized {
		return
	}
	if session.Title != "" && session.Title != constant.DefaultSessionTitle {
		cs.titleStates.Save(&store.TitleState{SessionID: session.Id.String(), Customized: true})
		return
	}

	seed := fallbackSeed
	for _, msg := range chatHistory {
		if msg.Role == constant.ChatMessageRoleUser {
			seed = msg.Content
			break
		}
	}

	derived := title.Derive(seed)
	if derived == "" {
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	session.Title = derived
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		cs.logger.Warn("Chat", "Auto-title update failed", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
		return
	}

	cs.titleStates.Save(&store.TitleState{SessionID: session.Id.String(), Customized: true})
	cs.publishEvent(ctx, events.NewSessionRenamed(session.Id.String(), session.UserId.String(), derived))
}

// --- Helpers ---

func (cs *chatService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFound("Session not found")
	}
	return session, nil
}

func (cs *chatService) publishEvent(ctx context.Context, evt events.BaseEvent) {
	if cs.publisherService == nil {
		return
	}
	payload, err := json.Marshal(dto.DomainEventMessage{
		Type:       evt.Type,
		Payload:    evt.Data,
		OccurredAt: evt.OccurredAt,
	})
	if err != nil {
		return
	}
	if err := cs.publisherService.Publish(ctx, payload); err != nil {
		cs.logger.Warn("Chat", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return serverutils.NewConfiguration("OpenAI API key is not configured")
	case errors.Is(err, llm.ErrInvalidCredential):
		return serverutils.NewUnauthorized("Invalid OpenAI API key")
	default:
		return serverutils.NewProvider("Assistant is unavailable", err)
	}
}

func sessionToDTO(s *entity.ChatSession) *dto.SessionDTO {
	return &dto.SessionDTO{
		Id:        s.Id,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
