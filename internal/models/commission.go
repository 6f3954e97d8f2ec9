package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Commission is a referral reward granted to the beneficiary user for one
// qualifying order. The unique index on (user_id, order_id) guarantees a
// commission is never recorded twice for the same order, no matter how many
// times the gateway retries the callback.
type Commission struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;uniqueIndex:idx_commissions_user_order" json:"user_id"`
	OrderID    uint            `gorm:"not null;uniqueIndex:idx_commissions_user_order" json:"order_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Type       string          `gorm:"size:30;not null" json:"type"`         // CUSTOMER_INVITE | AGENT_COMMISSION
	Status     string          `gorm:"size:20;not null;index" json:"status"` // PENDING, PAID
	Level      int             `gorm:"not null;default:1" json:"level"`      // only the direct referrer is rewarded
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	User  User  `gorm:"foreignKey:UserID" json:"-"`
	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

func (Commission) TableName() string { return "commissions" }
