package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cash movement kinds. Withdrawals take cash out of the drawer, incomes put
// cash in without a client payment behind them.
const (
	CashWithdrawal = "withdrawal"
	CashIncome     = "income"
)

// CashMovement is a manual drawer adjustment recorded by a user. Like the
// audit trail it is never updated or deleted.
type CashMovement struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"timestamp"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	Kind        string          `gorm:"size:20;not null;index" json:"kind"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description string          `gorm:"size:200" json:"description,omitempty"`
}
