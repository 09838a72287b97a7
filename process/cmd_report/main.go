package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fiado/process/report"
)

func main() {
	document := flag.String("document", "", "client document to scope the report to (optional)")
	month := flag.String("month", time.Now().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}

	report.RunReport(*document, *month, *list)
}
