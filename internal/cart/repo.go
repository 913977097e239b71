package cart

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
)

// Repository manages the ephemeral cart lines consumed by checkout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(userID uuid.UUID) ([]models.CartItem, error)
	DeleteForUser(userID uuid.UUID, productIDs []uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) ListByUser(userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return items, nil
}

// DeleteForUser removes the consumed lines. Lines added after checkout
// started reference other products and survive.
func (r *gormRepository) DeleteForUser(userID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	err := r.db.
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("clearing cart items: %w", err)
	}
	return nil
}
