package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debt is immutable once created: there is no edit or delete path.
type Debt struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"-"`
	ClientID    uint            `gorm:"index;not null" json:"client_id"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description string          `gorm:"size:200;not null" json:"description"`
}
