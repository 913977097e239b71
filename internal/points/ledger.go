package points

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// Ledger applies rewards balance deltas. Every mutation is a single
// atomic increment; the balance is never read, modified, and written back.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx rebinds the ledger to a caller-managed transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// Apply adjusts the user's balance by delta, which may be negative for a
// redemption. A redemption that would drive the balance below zero fails.
func (l *Ledger) Apply(userID uuid.UUID, delta int64) error {
	if delta == 0 {
		return nil
	}

	query := l.db.Model(&models.User{}).Where("id = ?", userID)
	if delta < 0 {
		query = query.Where("rewards_points >= ?", -delta)
	}
	result := query.Update("rewards_points", gorm.Expr("rewards_points + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("applying points delta: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if delta < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient points balance")
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

// Balance reads the current rewards balance.
func (l *Ledger) Balance(userID uuid.UUID) (int64, error) {
	var user models.User
	if err := l.db.Select("rewards_points").First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, fmt.Errorf("loading points balance: %w", err)
	}
	return user.RewardsPoints, nil
}
