package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TechnicianProfile is the bookable service profile of a TECHNICIAN user.
// OrderCount is the running number of completed orders, incremented when
// the final payment of an order is confirmed.
type TechnicianProfile struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	City         string          `gorm:"size:64;index" json:"city"`
	Services     string          `gorm:"type:text" json:"services"`
	PricePerHour decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price_per_hour"`
	ContactInfo  string          `gorm:"size:512" json:"-"` // encrypted, iv:ciphertext
	IsVerified   bool            `gorm:"default:false;index" json:"is_verified"`
	IsAvailable  bool            `gorm:"default:true;index" json:"is_available"`
	OrderCount   int             `gorm:"not null;default:0" json:"order_count"`
	Rating       float64         `gorm:"default:5" json:"rating"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (TechnicianProfile) TableName() string { return "technician_profiles" }
