package dto

import "time"

// DomainEventMessage is the envelope chat lifecycle events travel in
// on the in-process bus.
type DomainEventMessage struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}
