package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Audit action kinds. One entry is appended per successful mutating action,
// inside the same transaction as the mutation itself.
const (
	ActionCreateClient   = "create_client"
	ActionAddDebt        = "add_debt"
	ActionAddPayment     = "add_payment"
	ActionCashWithdrawal = "cash_withdrawal"
	ActionCashIncome     = "cash_income"
)

// AuditEntry is an append-only record of one account-affecting action.
// UserID is nil for system actions; ClientID and Amount are set when the
// action concerns a client or carries money.
type AuditEntry struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time        `gorm:"index" json:"timestamp"`
	UserID      *uint            `gorm:"index" json:"user_id,omitempty"`
	ClientID    *uint            `gorm:"index" json:"client_id,omitempty"`
	Action      string           `gorm:"size:50;not null;index" json:"action"`
	Amount      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
	Description string           `gorm:"size:200" json:"description,omitempty"`
}
