package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// OwnedBy scopes a query to a single user's rows.
type OwnedBy struct {
	UserID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// CursorFrom implements keyset pagination anchored at a known row.
// The comparison is inclusive: the anchor row itself is the first row
// of the page, which lets callers hand out the overflow row's id as
// the next cursor. Ties on created_at are broken by id, matching the
// (created_at, id) ordering the list queries use.
type CursorFrom struct {
	CreatedAt time.Time
	ID        uuid.UUID
	Desc      bool
}

func (s CursorFrom) Apply(db *gorm.DB) *gorm.DB {
	if s.Desc {
		return db.Where("(created_at, id) <= (?, ?)", s.CreatedAt, s.ID)
	}
	return db.Where("(created_at, id) >= (?, ?)", s.CreatedAt, s.ID)
}
