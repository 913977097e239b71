package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the rewards balance this core mutates. Registration and
// authentication live in the identity service; only the points ledger
// writes RewardsPoints, and only via a single atomic increment.
type User struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	Email         string    `gorm:"column:email;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;not null"`
	RewardsPoints int64     `gorm:"column:rewards_points;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
