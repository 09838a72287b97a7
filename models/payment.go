package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted by the ledger. Only cash-method payments count
// toward the physical drawer total.
const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
	PaymentOther    = "other"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentTransfer || m == PaymentOther
}

type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `json:"-"`
	ClientID  uint            `gorm:"index;not null" json:"client_id"`
	Date      time.Time       `gorm:"not null" json:"date"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method    string          `gorm:"size:20;not null" json:"method"`
}
