package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is one booked service engagement. Deposit and final amounts are
// computed at creation (50/50 split of the total) and frozen; deposit+final
// always equals the total exactly.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderNumber     string          `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	CustomerID      uint            `gorm:"not null;index" json:"customer_id"`
	TechnicianID    uint            `gorm:"not null;index" json:"technician_id"`
	ServiceType     string          `gorm:"size:64;not null" json:"service_type"`
	ServiceDuration int             `gorm:"not null" json:"service_duration"` // minutes
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DepositAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"deposit_amount"`
	FinalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"final_amount"`
	ServiceAddress  string          `gorm:"size:255" json:"service_address"`
	ContactInfo     string          `gorm:"size:512" json:"-"` // encrypted, iv:ciphertext
	ScheduledTime   time.Time       `gorm:"not null" json:"scheduled_time"`
	Status          string          `gorm:"size:20;not null;index" json:"status"` // PENDING, CONFIRMED, COMPLETED, CANCELLED
	CompletedAt     *time.Time      `json:"completed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	Customer   User      `gorm:"foreignKey:CustomerID" json:"-"`
	Technician User      `gorm:"foreignKey:TechnicianID" json:"-"`
	Payments   []Payment `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

func (Order) TableName() string { return "orders" }
