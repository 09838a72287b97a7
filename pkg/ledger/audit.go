package ledger

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fiado/models"
)

// RecordOpts carries the optional parts of an audit entry.
type RecordOpts struct {
	ClientID    *uint
	Amount      *decimal.Decimal
	Description string
}

// Record appends one immutable audit entry with a server-assigned timestamp.
// It must be called on the same transaction as the mutation it documents so
// that both commit or both roll back. actorID is nil for system actions.
func Record(tx *gorm.DB, actorID *uint, action string, opts RecordOpts) (*models.AuditEntry, error) {
	entry := models.AuditEntry{
		UserID:      actorID,
		ClientID:    opts.ClientID,
		Action:      action,
		Amount:      opts.Amount,
		Description: opts.Description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
