// Package ledger holds the balance, audit and reporting core of the
// application. Functions here work on records the caller already loaded;
// persistence stays in the handlers and the store.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"fiado/models"
)

// ClientBalance returns sum(debts) - sum(payments) for one client's loaded
// records. The result is signed: a negative balance means the client has
// overpaid, which is accepted as-is.
func ClientBalance(debts []models.Debt, payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		total = total.Add(d.Amount)
	}
	for _, p := range payments {
		total = total.Sub(p.Amount)
	}
	return total
}

// CashDrawerTotal reconciles the physical cash for one day: cash-method
// payments dated that day, plus income movements made that day, minus
// withdrawal movements made that day. Transfer and other payment methods
// never touch the drawer.
func CashDrawerTotal(payments []models.Payment, movements []models.CashMovement, day time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Method == models.PaymentCash && sameDay(p.Date, day) {
			total = total.Add(p.Amount)
		}
	}
	for _, m := range movements {
		if !sameDay(m.CreatedAt, day) {
			continue
		}
		switch m.Kind {
		case models.CashIncome:
			total = total.Add(m.Amount)
		case models.CashWithdrawal:
			total = total.Sub(m.Amount)
		}
	}
	return total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
