package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`
	// Email mirrors a token claim that may be absent, so many rows can
	// legitimately hold "". Uniqueness belongs to the id alone.
	Email string `gorm:"type:varchar(255);not null"`
	FullName  string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
