package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// DefaultSessionTitle is the placeholder a fresh session starts with.
	// A session still carrying it is eligible for auto-titling.
	DefaultSessionTitle = "New chat"

	// ChatHistoryLimit bounds how many persisted messages are replayed
	// to the model per exchange.
	ChatHistoryLimit = 40

	SessionListDefaultLimit = 10
	SessionListMaxLimit     = 50

	MessageListDefaultLimit = 30
	MessageListMaxLimit     = 100

	// CounselorSystemPromptV1 primes every model call. Versioned so a
	// prompt revision never silently changes stored conversations.
	CounselorSystemPromptV1 = "You are an AI career counselor. Provide actionable, empathetic guidance with clear next steps."
)
