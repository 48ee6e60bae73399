package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the local projection of an externally authenticated identity.
// Rows are upserted lazily the first time a token for that subject is seen.
type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
