package orders

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
	"github.com/shopvia/shopvia-backend/pkg/enums"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// Repository persists order rows. One checkout writes several rows that
// share a CheckoutRef; finalization always addresses the whole batch.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(orders []*models.Order) error
	FindByIDs(ids []uuid.UUID) ([]models.Order, error)
	FindByCheckoutRef(ref uuid.UUID) ([]models.Order, error)
	MarkPaid(ids []uuid.UUID, paymentID string) error
	DeleteAwaiting(ids []uuid.UUID) error
	ListByUser(userID uuid.UUID, limit, offset int) ([]models.Order, error)
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

func (r *gormRepository) CreateBatch(orders []*models.Order) error {
	if len(orders) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no orders to create")
	}
	if err := r.db.Create(orders).Error; err != nil {
		return fmt.Errorf("creating orders: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByIDs(ids []uuid.UUID) ([]models.Order, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no order ids given")
	}
	var found []models.Order
	if err := r.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}
	return found, nil
}

func (r *gormRepository) FindByCheckoutRef(ref uuid.UUID) ([]models.Order, error) {
	var found []models.Order
	if err := r.db.Where("checkout_ref = ?", ref).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("finding orders by checkout ref: %w", err)
	}
	return found, nil
}

// MarkPaid flips the batch to paid and records the provider payment id.
// Rows already finalized are left alone.
func (r *gormRepository) MarkPaid(ids []uuid.UUID, paymentID string) error {
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no order ids given")
	}
	result := r.db.Model(&models.Order{}).
		Where("id IN ? AND payment_status = ?", ids, enums.PaymentStatusAwaitingPayment).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"payment_id":     paymentID,
		})
	if result.Error != nil {
		return fmt.Errorf("marking orders paid: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "no awaiting orders to mark paid")
	}
	return nil
}

// DeleteAwaiting removes provisional rows whose hosted session never
// opened. Finalized rows are never deleted.
func (r *gormRepository) DeleteAwaiting(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.
		Where("id IN ? AND payment_status = ?", ids, enums.PaymentStatusAwaitingPayment).
		Delete(&models.Order{}).Error
	if err != nil {
		return fmt.Errorf("deleting provisional orders: %w", err)
	}
	return nil
}

func (r *gormRepository) ListByUser(userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var found []models.Order
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return found, nil
}
