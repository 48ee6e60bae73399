package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/pkg/serverutils"
	"ai-counselor-be/internal/repository/contract"
	"ai-counselor-be/internal/repository/memory"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/chat/history"
	"ai-counselor-be/pkg/llm"
)

// --- In-memory fakes ---
//
// The fakes interpret the specification structs directly instead of
// building SQL, which keeps the service tests free of a database.

type fakeStore struct {
	sessions []*entity.ChatSession
	messages []*entity.ChatMessage
	users    []*entity.User

	sessionUpdateErr error
}

type fakeUowFactory struct{ store *fakeStore }

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct{ store *fakeStore }

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

type querySpec struct {
	id            *uuid.UUID
	userId        *uuid.UUID
	sessionId     *uuid.UUID
	desc          bool
	limit         int
	cursorAt      time.Time
	cursorId      uuid.UUID
	cursorDesc    bool
	cursorPresent bool
}

func parseSpecs(specs []specification.Specification) querySpec {
	var q querySpec
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			id := spec.ID
			q.id = &id
		case specification.OwnedBy:
			uid := spec.UserID
			q.userId = &uid
		case specification.ByChatSessionID:
			sid := spec.ChatSessionID
			q.sessionId = &sid
		case specification.OrderBy:
			if spec.Field == "created_at" {
				q.desc = spec.Desc
			}
		case specification.Pagination:
			q.limit = spec.Limit
		case specification.CursorFrom:
			q.cursorAt = spec.CreatedAt
			q.cursorId = spec.ID
			q.cursorDesc = spec.Desc
			q.cursorPresent = true
		}
	}
	return q
}

func cursorKeeps(q querySpec, createdAt time.Time, id uuid.UUID) bool {
	if !q.cursorPresent {
		return true
	}
	if createdAt.Equal(q.cursorAt) {
		if q.cursorDesc {
			return id.String() <= q.cursorId.String()
		}
		return id.String() >= q.cursorId.String()
	}
	if q.cursorDesc {
		return createdAt.Before(q.cursorAt)
	}
	return createdAt.After(q.cursorAt)
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) query(specs ...specification.Specification) []*entity.ChatSession {
	q := parseSpecs(specs)
	var out []*entity.ChatSession
	for _, s := range r.store.sessions {
		if q.id != nil && s.Id != *q.id {
			continue
		}
		if q.userId != nil && s.UserId != *q.userId {
			continue
		}
		if !cursorKeeps(q, s.CreatedAt, s.Id) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if q.desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if q.desc {
			return out[i].Id.String() > out[j].Id.String()
		}
		return out[i].Id.String() < out[j].Id.String()
	})
	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	copied := *session
	r.store.sessions = append(r.store.sessions, &copied)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	if r.store.sessionUpdateErr != nil {
		return r.store.sessionUpdateErr
	}
	for i, s := range r.store.sessions {
		if s.Id == session.Id {
			copied := *session
			r.store.sessions[i] = &copied
			return nil
		}
	}
	return errors.New("session not found")
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, s := range r.store.sessions {
		if s.Id == id {
			r.store.sessions = append(r.store.sessions[:i], r.store.sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	matches := r.query(specs...)
	if len(matches) == 0 {
		return nil, nil
	}
	copied := *matches[0]
	return &copied, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return r.query(specs...), nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.query(specs...))), nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) query(specs ...specification.Specification) []*entity.ChatMessage {
	q := parseSpecs(specs)
	var out []*entity.ChatMessage
	for _, m := range r.store.messages {
		if q.id != nil && m.Id != *q.id {
			continue
		}
		if q.sessionId != nil && m.ChatSessionId != *q.sessionId {
			continue
		}
		if !cursorKeeps(q, m.CreatedAt, m.Id) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if q.desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if q.desc {
			return out[i].Id.String() > out[j].Id.String()
		}
		return out[i].Id.String() < out[j].Id.String()
	})
	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	copied := *message
	r.store.messages = append(r.store.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, m := range r.store.messages {
		if m.Id == id {
			r.store.messages = append(r.store.messages[:i], r.store.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	matches := r.query(specs...)
	if len(matches) == 0 {
		return nil, nil
	}
	copied := *matches[0]
	return &copied, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return r.query(specs...), nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.query(specs...))), nil
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Upsert(ctx context.Context, user *entity.User) error {
	for _, u := range r.store.users {
		if u.Id == user.Id {
			return nil
		}
	}
	copied := *user
	r.store.users = append(r.store.users, &copied)
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	q := parseSpecs(specs)
	for _, u := range r.store.users {
		if q.id == nil || u.Id == *q.id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.users)), nil
}

type fakeLLM struct {
	reply        string
	err          error
	streamDeltas []string
	streamErr    error
	gotHistory   []llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, hist []llm.Message, options ...llm.Option) (string, error) {
	f.gotHistory = hist
	return f.reply, f.err
}

func (f *fakeLLM) ChatStream(ctx context.Context, hist []llm.Message, options ...llm.Option) (llm.Stream, error) {
	f.gotHistory = hist
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{deltas: f.streamDeltas, err: f.streamErr}, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.reply, f.err
}

type fakeStream struct {
	deltas []string
	err    error
	pos    int
}

func (s *fakeStream) Next() (string, error) {
	if s.pos < len(s.deltas) {
		d := s.deltas[s.pos]
		s.pos++
		return d, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakePublisher struct{ payloads [][]byte }

func (p *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// --- Fixture ---

type fixture struct {
	store     *fakeStore
	llm       *fakeLLM
	publisher *fakePublisher
	svc       IChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &fakeStore{}
	factory := &fakeUowFactory{store: store}
	provider := &fakeLLM{reply: "Here is some guidance."}
	publisher := &fakePublisher{}

	svc := NewChatService(
		factory,
		provider,
		history.NewLoader(factory),
		memory.NewTitleStateRepository(),
		publisher,
		nopLogger{},
	)
	return &fixture{store: store, llm: provider, publisher: publisher, svc: svc}
}

func (f *fixture) addSession(userId uuid.UUID, title string, createdAt time.Time) *entity.ChatSession {
	s := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: createdAt,
	}
	f.store.sessions = append(f.store.sessions, s)
	return s
}

// --- Tests ---

func TestCreateSession_DefaultTitle(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()

	res, err := f.svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, constant.DefaultSessionTitle, res.Title)

	require.Len(t, f.store.sessions, 1)
	assert.Equal(t, userId, f.store.sessions[0].UserId)
}

func TestCreateSession_CustomTitleBlocksAutoTitle(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()

	res, err := f.svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{Title: "Salary talk"})
	require.NoError(t, err)
	assert.Equal(t, "Salary talk", res.Title)

	_, err = f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: res.Id,
		Content:       "how do I ask for a raise",
	})
	require.NoError(t, err)

	assert.Equal(t, "Salary talk", f.store.sessions[0].Title)
}

func TestSendMessage_PersistsExchange(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	res, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "I feel stuck in my career",
	})
	require.NoError(t, err)

	require.Len(t, f.store.messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, f.store.messages[0].Role)
	assert.Equal(t, "I feel stuck in my career", f.store.messages[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, f.store.messages[1].Role)
	assert.Equal(t, "Here is some guidance.", f.store.messages[1].Content)

	// Both turns record the acting user as sender
	assert.Equal(t, userId, f.store.messages[0].SenderId)
	assert.Equal(t, userId, f.store.messages[1].SenderId)

	assert.Equal(t, f.store.messages[0].Id, res.UserId)
	assert.Equal(t, f.store.messages[1].Id, res.Assistant.Id)
	assert.Equal(t, "Here is some guidance.", res.Assistant.Content)

	// Model context: system prompt first, then the new user message
	require.NotEmpty(t, f.llm.gotHistory)
	assert.Equal(t, constant.ChatMessageRoleSystem, f.llm.gotHistory[0].Role)
	assert.Equal(t, constant.CounselorSystemPromptV1, f.llm.gotHistory[0].Content)
	last := f.llm.gotHistory[len(f.llm.gotHistory)-1]
	assert.Equal(t, constant.ChatMessageRoleUser, last.Role)
	assert.Equal(t, "I feel stuck in my career", last.Content)

	// Placeholder title replaced from the first user message
	assert.Equal(t, "I feel stuck in my career", f.store.sessions[0].Title)
}

func TestSendMessage_AutoTitleTruncates(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	_, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "how do I negotiate a better salary at my current job",
	})
	require.NoError(t, err)

	assert.Equal(t, "How do I negotiate a better salary at", f.store.sessions[0].Title)
}

func TestSendMessage_SessionNotOwned(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	intruder := uuid.New()
	sess := f.addSession(owner, constant.DefaultSessionTitle, time.Now())

	_, err := f.svc.SendMessage(context.Background(), intruder, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "hello",
	})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindNotFound, appErr.Kind)
	assert.Empty(t, f.store.messages)
}

func TestSendMessage_BlankContent(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	_, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "   \n\t ",
	})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindInvalidInput, appErr.Kind)
}

func TestSendMessage_InvalidKeyKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	f.llm.err = llm.ErrInvalidCredential
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	_, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "hello",
	})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindUnauthorized, appErr.Kind)
	assert.Equal(t, "Invalid OpenAI API key", appErr.Message)

	// The user message survives the provider failure
	require.Len(t, f.store.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, f.store.messages[0].Role)
}

func TestSendMessage_EmptyReplyAccepted(t *testing.T) {
	f := newFixture(t)
	f.llm.reply = ""
	userId := uuid.New()
	sess := f.addSession(userId, "Custom", time.Now())

	res, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "", res.Assistant.Content)
	require.Len(t, f.store.messages, 2)
	assert.Equal(t, "", f.store.messages[1].Content)
}

func TestStreamMessage_DeltasAndPersist(t *testing.T) {
	f := newFixture(t)
	f.llm.streamDeltas = []string{"Take ", "a ", "breath."}
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	var got []string
	res, err := f.svc.StreamMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "I bombed my interview",
	}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Take ", "a ", "breath."}, got)
	assert.Equal(t, "Take a breath.", res.Assistant.Content)
	require.Len(t, f.store.messages, 2)
	assert.Equal(t, "Take a breath.", f.store.messages[1].Content)
	assert.Equal(t, "I bombed my interview", f.store.sessions[0].Title)
}

func TestStreamMessage_ClientGoneDiscardsReply(t *testing.T) {
	f := newFixture(t)
	f.llm.streamDeltas = []string{"partial "}
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	_, err := f.svc.StreamMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "hello",
	}, func(delta string) error {
		return errors.New("connection reset")
	})
	require.Error(t, err)

	// The user message is kept, the partial reply is not
	require.Len(t, f.store.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, f.store.messages[0].Role)
}

func TestStreamMessage_ProviderFailureMidStreamDiscardsReply(t *testing.T) {
	f := newFixture(t)
	f.llm.streamDeltas = []string{"par", "tial"}
	f.llm.streamErr = errors.New("upstream closed the connection")
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	_, err := f.svc.StreamMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "hello",
	}, func(delta string) error { return nil })

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindProvider, appErr.Kind)
	assert.Equal(t, "Assistant is unavailable", appErr.Message)

	// The user message is kept, the truncated reply is not
	require.Len(t, f.store.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, f.store.messages[0].Role)
}

func TestSendMessage_AutoTitleFailureDoesNotFailExchange(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())
	f.store.sessionUpdateErr = errors.New("deadlock detected")

	res, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatSessionId: sess.Id,
		Content:       "How do I ask for a raise?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is some guidance.", res.Assistant.Content)
	require.Len(t, f.store.messages, 2)

	// The rename never landed, but the exchange itself succeeded
	assert.Equal(t, constant.DefaultSessionTitle, f.store.sessions[0].Title)
}

func TestListSessions_KeysetPagination(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	base := time.Now()
	oldest := f.addSession(userId, "first", base.Add(-3*time.Hour))
	middle := f.addSession(userId, "second", base.Add(-2*time.Hour))
	newest := f.addSession(userId, "third", base.Add(-1*time.Hour))
	f.addSession(uuid.New(), "foreign", base) // other user's session

	page1, err := f.svc.ListSessions(context.Background(), userId, &dto.ListSessionsRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Sessions, 2)
	assert.Equal(t, newest.Id, page1.Sessions[0].Id)
	assert.Equal(t, middle.Id, page1.Sessions[1].Id)
	assert.Equal(t, oldest.Id.String(), page1.NextCursor)

	page2, err := f.svc.ListSessions(context.Background(), userId, &dto.ListSessionsRequest{Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Sessions, 1)
	assert.Equal(t, oldest.Id, page2.Sessions[0].Id)
	assert.Empty(t, page2.NextCursor)
}

func TestListSessions_UnknownCursor(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	f.addSession(userId, "only", time.Now())

	_, err := f.svc.ListSessions(context.Background(), userId, &dto.ListSessionsRequest{Cursor: uuid.NewString()})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindInvalidInput, appErr.Kind)
}

func TestListMessages_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	sess := f.addSession(owner, "mine", time.Now())

	_, err := f.svc.ListMessages(context.Background(), uuid.New(), &dto.ListMessagesRequest{ChatSessionId: sess.Id})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindNotFound, appErr.Kind)
}

func TestListMessages_AscendingPages(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, "mine", time.Now().Add(-time.Hour))

	base := time.Now()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		m := &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: sess.Id,
			Role:          constant.ChatMessageRoleUser,
			Content:       "msg",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		f.store.messages = append(f.store.messages, m)
		ids = append(ids, m.Id)
	}

	page1, err := f.svc.ListMessages(context.Background(), userId, &dto.ListMessagesRequest{ChatSessionId: sess.Id, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page1.Messages, 3)
	assert.Equal(t, ids[0], page1.Messages[0].Id)
	assert.Equal(t, ids[3].String(), page1.NextCursor)

	page2, err := f.svc.ListMessages(context.Background(), userId, &dto.ListMessagesRequest{ChatSessionId: sess.Id, Limit: 3, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Messages, 2)
	assert.Equal(t, ids[3], page2.Messages[0].Id)
	assert.Equal(t, ids[4], page2.Messages[1].Id)
	assert.Empty(t, page2.NextCursor)
}

func TestRenameSession(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, constant.DefaultSessionTitle, time.Now())

	res, err := f.svc.RenameSession(context.Background(), userId, &dto.RenameSessionRequest{Id: sess.Id, Title: "  Career change plan  "})
	require.NoError(t, err)
	assert.Equal(t, "Career change plan", res.Title)
	assert.Equal(t, "Career change plan", f.store.sessions[0].Title)

	// Renamed sessions are never auto-titled afterwards
	_, err = f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{ChatSessionId: sess.Id, Content: "something else entirely"})
	require.NoError(t, err)
	assert.Equal(t, "Career change plan", f.store.sessions[0].Title)
}

func TestRenameSession_NotOwned(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(uuid.New(), "theirs", time.Now())

	_, err := f.svc.RenameSession(context.Background(), uuid.New(), &dto.RenameSessionRequest{Id: sess.Id, Title: "hijack"})

	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, serverutils.KindNotFound, appErr.Kind)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, "mine", time.Now())
	f.store.messages = append(f.store.messages, &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sess.Id,
		Role:          constant.ChatMessageRoleUser,
		Content:       "hi",
		CreatedAt:     time.Now(),
	})

	res, err := f.svc.DeleteSession(context.Background(), userId, sess.Id)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	assert.Empty(t, f.store.sessions)
	assert.Empty(t, f.store.messages)
}

func TestDeleteSession_NotOwnedIsSoftMiss(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(uuid.New(), "theirs", time.Now())

	res, err := f.svc.DeleteSession(context.Background(), uuid.New(), sess.Id)
	require.NoError(t, err)
	assert.False(t, res.Ok)
	assert.Len(t, f.store.sessions, 1)
}

func TestSendMessage_PublishesExchangeEvent(t *testing.T) {
	f := newFixture(t)
	userId := uuid.New()
	sess := f.addSession(userId, "Custom", time.Now())

	_, err := f.svc.SendMessage(context.Background(), userId, &dto.SendMessageRequest{ChatSessionId: sess.Id, Content: "hello"})
	require.NoError(t, err)

	require.NotEmpty(t, f.publisher.payloads)
	assert.Contains(t, string(f.publisher.payloads[len(f.publisher.payloads)-1]), "EXCHANGE_COMPLETED")
}
