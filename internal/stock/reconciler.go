package stock

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// Line is one requested decrement.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Reconciler applies stock decrements inside a caller-managed transaction.
// Each decrement is guarded so the row is only updated when enough stock
// remains; a failed guard aborts the whole batch.
type Reconciler struct {
	db *gorm.DB
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// WithTx rebinds the reconciler to a caller-managed transaction.
func (r *Reconciler) WithTx(tx *gorm.DB) *Reconciler {
	return &Reconciler{db: tx}
}

// Decrement applies all lines. Duplicate product IDs are merged before
// updating, and products are touched in a stable order so concurrent
// batches cannot deadlock on each other.
func (r *Reconciler) Decrement(lines []Line) error {
	merged, err := mergeLines(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		result := r.db.Model(&models.Product{}).
			Where("id = ? AND is_active = ? AND stock >= ?", line.ProductID, true, line.Qty).
			Update("stock", gorm.Expr("stock - ?", line.Qty))
		if result.Error != nil {
			return fmt.Errorf("decrementing stock for product %s: %w", line.ProductID, result.Error)
		}
		if result.RowsAffected == 0 {
			return r.explainFailure(line)
		}
	}
	return nil
}

func (r *Reconciler) explainFailure(line Line) error {
	var product models.Product
	err := r.db.Select("id", "is_active", "stock").First(&product, "id = ?", line.ProductID).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
	case err != nil:
		return fmt.Errorf("inspecting product %s: %w", line.ProductID, err)
	case !product.IsActive:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not available", line.ProductID))
	default:
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", line.ProductID, line.Qty, product.Stock))
	}
}

func mergeLines(lines []Line) ([]Line, error) {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid quantity %d for product %s", line.Qty, line.ProductID))
		}
		totals[line.ProductID] += line.Qty
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Qty: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}
