package repository

import (
	"junyue/internal/models"

	"gorm.io/gorm"
)

type TechnicianRepository struct {
	db *gorm.DB
}

func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

func (r *TechnicianRepository) Create(p *models.TechnicianProfile) error {
	return r.db.Create(p).Error
}

func (r *TechnicianRepository) GetByUserID(userID uint) (*models.TechnicianProfile, error) {
	var p models.TechnicianProfile
	if err := r.db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListVerified returns verified technician profiles, available first, busiest
// first within each group.
func (r *TechnicianRepository) ListVerified(city string, limit, offset int) ([]models.TechnicianProfile, error) {
	q := r.db.Where("is_verified = ?", true)
	if city != "" {
		q = q.Where("city = ?", city)
	}
	var list []models.TechnicianProfile
	err := q.Preload("User").
		Order("is_available DESC, order_count DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *TechnicianRepository) Update(p *models.TechnicianProfile) error {
	return r.db.Save(p).Error
}

func (r *TechnicianRepository) SetAvailability(userID uint, available bool) error {
	return r.db.Model(&models.TechnicianProfile{}).
		Where("user_id = ?", userID).
		UpdateColumn("is_available", available).Error
}
