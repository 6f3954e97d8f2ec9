package repository

import (
	"junyue/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(o *models.Order) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByID(id uint) (*models.Order, error) {
	var o models.Order
	if err := r.db.First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByIDForUpdate loads an order under a row lock. Must run inside a
// transaction.
func (r *OrderRepository) GetByIDForUpdate(tx *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByParticipant returns orders where the user is the customer or the
// technician, newest first.
func (r *OrderRepository) ListByParticipant(userID uint, status string, limit, offset int) ([]models.Order, int64, error) {
	q := r.db.Model(&models.Order{}).
		Where("customer_id = ? OR technician_id = ?", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Order
	err := q.Preload("Payments").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *OrderRepository) Update(o *models.Order) error {
	return r.db.Save(o).Error
}
