package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing. Stock is mutated exclusively through the
// stock reconciler's guarded decrement.
type Product struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	ImageURL        string    `gorm:"column:image_url"`
	PriceAmount     int64     `gorm:"column:price_amount;not null"`
	DiscountPercent int       `gorm:"column:discount_percent;not null;default:0"`
	Stock           int       `gorm:"column:stock;not null;default:0"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
