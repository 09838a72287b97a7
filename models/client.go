package models

import "time"

// Client is an account holder of the ledger. Removing a client removes its
// debts, payments and audit trail via FK cascade.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Document  string    `gorm:"size:50;not null;uniqueIndex" json:"document"`
	Address   string    `gorm:"size:255" json:"address,omitempty"`
	Phone     string    `gorm:"size:64" json:"phone,omitempty"`

	Debts        []Debt       `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"debts,omitempty"`
	Payments     []Payment    `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
	AuditEntries []AuditEntry `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
