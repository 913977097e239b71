package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopvia/shopvia-backend/pkg/enums"
)

// Order is one row per cart line: a single checkout that spans several
// products produces several rows sharing a CheckoutRef. The product name
// and image are snapshotted at checkout time so later catalog edits do not
// rewrite order history.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	Code              string              `gorm:"column:code;not null;uniqueIndex"`
	CheckoutRef       uuid.UUID           `gorm:"column:checkout_ref;type:uuid;not null;index"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID         uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	ProductName       string              `gorm:"column:product_name;not null"`
	ProductImage      string              `gorm:"column:product_image"`
	Qty               int                 `gorm:"column:qty;not null"`
	PaymentID         string              `gorm:"column:payment_id;not null;default:''"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	DeliveryAddressID uuid.UUID           `gorm:"column:delivery_address_id;type:uuid;not null"`
	SubtotalAmount    int64               `gorm:"column:subtotal_amount;not null"`
	TotalAmount       int64               `gorm:"column:total_amount;not null"`
	UsedPoints        int64               `gorm:"column:used_points;not null;default:0"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
