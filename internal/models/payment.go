package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is one payment attempt against an order, either the deposit or the
// final payment. The composite unique index on (order_id, type) is the
// idempotency backstop: at most one row per order and stage. A FAILED deposit
// is reset to PENDING and reused rather than inserted again.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;uniqueIndex:idx_payments_order_type" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Type          string          `gorm:"size:20;not null;uniqueIndex:idx_payments_order_type" json:"type"` // DEPOSIT | FINAL
	Status        string          `gorm:"size:20;not null;index" json:"status"`                             // PENDING, PAID, FAILED
	PaymentMethod string          `gorm:"size:20;not null" json:"payment_method"`
	OutTradeNo    string          `gorm:"uniqueIndex;size:64" json:"out_trade_no"` // merchant order number at the gateway
	TransactionID string          `gorm:"size:64" json:"transaction_id"`           // gateway transaction id from the callback
	Notes         string          `gorm:"size:255" json:"notes"`
	PaidAt        *time.Time      `json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

func (Payment) TableName() string { return "payments" }
