package events

import "time"

// Event type codes for the chat session lifecycle.
const (
	TypeSessionCreated    = "SESSION_CREATED"
	TypeSessionRenamed    = "SESSION_RENAMED"
	TypeSessionDeleted    = "SESSION_DELETED"
	TypeExchangeCompleted = "EXCHANGE_COMPLETED"
)

func NewSessionCreated(sessionId, userId, title string) BaseEvent {
	return BaseEvent{
		Type: TypeSessionCreated,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"title":      title,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionRenamed(sessionId, userId, title string) BaseEvent {
	return BaseEvent{
		Type: TypeSessionRenamed,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"title":      title,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionDeleted(sessionId, userId string) BaseEvent {
	return BaseEvent{
		Type: TypeSessionDeleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
		},
		OccurredAt: time.Now(),
	}
}

// NewExchangeCompleted fires after an assistant reply has been persisted,
// carrying just enough for live listeners to refresh the session list.
func NewExchangeCompleted(sessionId, userId, assistantMessageId string) BaseEvent {
	return BaseEvent{
		Type: TypeExchangeCompleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"message_id": assistantMessageId,
		},
		OccurredAt: time.Now(),
	}
}
