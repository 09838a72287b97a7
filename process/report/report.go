package report

import (
	"fmt"
	"log"
	"os"
	"time"

	"fiado/models"
	"fiado/pkg/ledger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded movements report (month in YYYY-MM),
// optionally scoped to one client document, and optionally lists the rows.
func RunReport(document, month string, list bool) {
	gdb := mustDBFromEnv()

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	filter := ledger.MovementFilter{From: &start, To: &end}
	if document != "" {
		var client models.Client
		if err := gdb.Where("document = ?", document).First(&client).Error; err != nil {
			log.Fatalf("client not found: %v", err)
		}
		filter.ClientID = &client.ID
	}

	entries, err := ledger.QueryMovements(gdb, filter)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	totalDebt, totalPayment := ledger.MovementTotals(entries)

	fmt.Printf("movements for %s: %d entries\n", month, len(entries))
	fmt.Printf("total debt:    %s\n", totalDebt.StringFixed(2))
	fmt.Printf("total payment: %s\n", totalPayment.StringFixed(2))
	if list {
		for _, e := range entries {
			amt := "-"
			if e.Amount != nil {
				amt = e.Amount.StringFixed(2)
			}
			fmt.Printf("%s  %-16s  %10s  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Action, amt, e.Description)
		}
	}
}
