package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fiado/models"
)

// MovementFilter narrows an audit-trail query. Every field is optional and
// filters combine with AND semantics; From and To are inclusive bounds on
// the entry timestamp.
type MovementFilter struct {
	From     *time.Time
	To       *time.Time
	ClientID *uint
}

// QueryMovements returns the filtered audit trail ordered most recent
// first. No pagination: at the expected scale the full set is a few
// thousand rows at most.
func QueryMovements(db *gorm.DB, f MovementFilter) ([]models.AuditEntry, error) {
	q := db.Model(&models.AuditEntry{})
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	var entries []models.AuditEntry
	if err := q.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MovementTotals sums the debt and payment amounts over an already filtered
// result set. Entries without an amount contribute nothing.
func MovementTotals(entries []models.AuditEntry) (totalDebt, totalPayment decimal.Decimal) {
	totalDebt, totalPayment = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Amount == nil {
			continue
		}
		switch e.Action {
		case models.ActionAddDebt:
			totalDebt = totalDebt.Add(*e.Amount)
		case models.ActionAddPayment:
			totalPayment = totalPayment.Add(*e.Amount)
		}
	}
	return totalDebt, totalPayment
}
