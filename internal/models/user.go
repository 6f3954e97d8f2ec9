package models

import (
	"time"

	"junyue/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Phone        string         `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	Nickname     string         `gorm:"size:64;not null" json:"nickname"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:20;not null;index" json:"role"` // CUSTOMER | TECHNICIAN | ADMIN
	IsAgent      bool           `gorm:"default:false" json:"is_agent"`
	InviteCode   string         `gorm:"uniqueIndex;size:20;not null" json:"invite_code"`
	// InviterID is set once at registration and never changes afterwards.
	// Self-reference is rejected at registration, so the invite graph is a forest.
	InviterID *uint          `gorm:"index" json:"inviter_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Inviter           *User              `gorm:"foreignKey:InviterID" json:"-"`
	Invitees          []User             `gorm:"foreignKey:InviterID" json:"-"`
	TechnicianProfile *TechnicianProfile `gorm:"foreignKey:UserID" json:"technician_profile,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) IsCustomer() bool   { return u.Role == domain.RoleCustomer }
func (u *User) IsTechnician() bool { return u.Role == domain.RoleTechnician }
