package history

import (
	"context"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/llm"

	"github.com/google/uuid"
)

// Loader assembles the model context for one exchange.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewLoader(uowFactory unitofwork.RepositoryFactory) *Loader {
	return &Loader{
		uowFactory: uowFactory,
	}
}

// LoadConversationHistory returns the system prompt followed by the most
// recent persisted messages of the session in chronological order. The
// replay window is bounded so long sessions stay within model context.
func (l *Loader) LoadConversationHistory(ctx context.Context, sessionId uuid.UUID) ([]llm.Message, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	recent, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.OrderBy{Field: "id", Desc: true},
		specification.Pagination{Limit: constant.ChatHistoryLimit},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(recent)+1)
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: constant.CounselorSystemPromptV1,
	})

	// Query is newest-first; replay oldest-first
	for i := len(recent) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{
			Role:    recent[i].Role,
			Content: recent[i].Content,
		})
	}

	return messages, nil
}
