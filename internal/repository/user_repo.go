package repository

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"junyue/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByPhone(phone string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("phone = ?", phone).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByInviteCode resolves a referrer by their invite code.
func (r *UserRepository) GetByInviteCode(code string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("invite_code = ?", code).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CountInvitees returns the referral fan-out of a user. It is a point-in-time
// count; races with concurrent registrations are tolerated.
func (r *UserRepository) CountInvitees(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Where("inviter_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

// generateInviteCode returns an 8-character hex invite code.
func generateInviteCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewInviteCode generates a code not yet taken by any user.
func (r *UserRepository) NewInviteCode() (string, error) {
	for i := 0; i < 10; i++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}
		var n int64
		if err := r.db.Model(&models.User{}).Where("invite_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
		// Collision: retry with new code
	}
	return "", fmt.Errorf("failed to generate a unique invite code after retries")
}
