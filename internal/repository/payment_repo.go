package repository

import (
	"junyue/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDForUpdate loads a payment under a row lock so concurrent callbacks
// for the same payment serialize. Must run inside a transaction.
func (r *PaymentRepository) GetByIDForUpdate(tx *gorm.DB, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByOrderAndType returns the single payment row for an (order, stage)
// pair, if any. The composite unique index keeps it single.
func (r *PaymentRepository) GetByOrderAndType(orderID uint, paymentType string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("order_id = ? AND type = ?", orderID, paymentType).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *PaymentRepository) Delete(p *models.Payment) error {
	return r.db.Unscoped().Delete(p).Error
}
