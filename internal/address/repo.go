package address

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopvia/shopvia-backend/pkg/db/models"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// Repository verifies delivery addresses. Address management itself lives
// in the account service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUser(id, userID uuid.UUID) (*models.Address, error)
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

// FindForUser loads the address only when it belongs to the given user,
// so one customer cannot ship against another customer's address book.
func (r *gormRepository) FindForUser(id, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.db.First(&addr, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery address not found")
		}
		return nil, fmt.Errorf("finding address: %w", err)
	}
	return &addr, nil
}
