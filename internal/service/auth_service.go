package service

import (
	"errors"
	"log"

	"junyue/config"
	"junyue/internal/auth"
	"junyue/internal/domain"
	"junyue/internal/models"
	"junyue/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	techRepo *repository.TechnicianRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, techRepo *repository.TechnicianRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, techRepo: techRepo}
}

// Register creates a user with a fresh invite code. When inviteCode names an
// existing user, the referral edge is set here, once; it never changes
// afterwards. Unknown and self-referencing codes are ignored rather than
// rejected, matching the mobile signup flow.
func (s *AuthService) Register(phone, password, nickname, role, inviteCode string) (*models.User, string, string, error) {
	_, err := s.userRepo.GetByPhone(phone)
	if err == nil {
		return nil, "", "", ErrPhoneExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, "", "", err
	}
	code, err := s.userRepo.NewInviteCode()
	if err != nil {
		return nil, "", "", err
	}

	var inviterID *uint
	if inviteCode != "" {
		inviter, err := s.userRepo.GetByInviteCode(inviteCode)
		if err == nil {
			inviterID = &inviter.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", err
		} else {
			log.Printf("[auth] unknown invite code %q at registration of %s, ignoring", inviteCode, phone)
		}
	}

	u := &models.User{
		Phone:        phone,
		Nickname:     nickname,
		PasswordHash: string(hash),
		Role:         role,
		InviteCode:   code,
		InviterID:    inviterID,
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, "", "", err
	}

	// Technicians start with an unverified, bookable-once-approved profile.
	if role == domain.RoleTechnician {
		if err := s.techRepo.Create(&models.TechnicianProfile{UserID: u.ID, IsAvailable: true}); err != nil {
			log.Printf("[auth] create technician profile for user=%d failed: %v", u.ID, err)
		}
	}

	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Phone, u.Role)
	if err != nil {
		return u, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return u, access, "", err
	}
	return u, access, refresh, nil
}

func (s *AuthService) Login(phone, password string) (*models.User, string, string, error) {
	u, err := s.userRepo.GetByPhone(phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Phone, u.Role)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}
