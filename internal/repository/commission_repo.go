package repository

import (
	"junyue/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) Create(c *models.Commission) error {
	return r.db.Create(c).Error
}

// GetByUserAndOrder returns the commission already granted to a beneficiary
// for an order, if any.
func (r *CommissionRepository) GetByUserAndOrder(userID, orderID uint) (*models.Commission, error) {
	var c models.Commission
	if err := r.db.Where("user_id = ? AND order_id = ?", userID, orderID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommissionRepository) ListByUser(userID uint, limit, offset int) ([]models.Commission, error) {
	var list []models.Commission
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// SumByUser totals a beneficiary's commissions, optionally filtered by status.
func (r *CommissionRepository) SumByUser(userID uint, status string) (decimal.Decimal, error) {
	q := r.db.Model(&models.Commission{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var sum decimal.NullDecimal
	if err := q.Select("SUM(amount)").Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
