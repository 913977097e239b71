package products

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// Repository reads catalog rows for checkout pricing and snapshots. Stock
// writes go through the reconciler, never through this repository.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIDs(ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
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

// FindByIDs loads the requested products keyed by id. A missing id is a
// not-found error so callers fail before touching stock.
func (r *gormRepository) FindByIDs(ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no product ids given")
	}
	var rows []models.Product
	if err := r.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}

	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
	}
	return byID, nil
}
