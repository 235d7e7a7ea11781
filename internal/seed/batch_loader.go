package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// LoadBatches ingests a starter inventory CSV into the medicines table.
// Expected columns: name, type, expiry (YYYY-MM-DD or empty), price,
// quantity. Loading is skipped once the table has any rows, so restarting
// never duplicates batches.
func LoadBatches(db *sqlx.DB, csvPath string) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM medicines`); err != nil {
		log.Printf("unable to inspect medicines table: %v", err)
		return
	}
	if count > 0 {
		return
	}

	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load starter inventory %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read inventory header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start inventory transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`INSERT INTO medicines (name, type, expiry_date, price, quantity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("unable to prepare batch insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read inventory row: %v", err)
			continue
		}
		if len(record) < 5 {
			continue
		}
		name := strings.TrimSpace(record[0])
		medType := strings.TrimSpace(record[1])
		expiry := strings.TrimSpace(record[2])
		price, priceErr := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		qty, qtyErr := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)

		if name == "" || priceErr != nil || qtyErr != nil || qty < 0 {
			continue
		}
		if medType == "" {
			medType = "Tablet"
		}

		var expiryVal any
		if expiry != "" {
			expiryVal = expiry
		}

		if _, err := stmt.Exec(name, medType, expiryVal, price, qty); err != nil {
			log.Printf("unable to insert batch %s: %v", name, err)
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit inventory seed: %v", err)
	} else {
		log.Printf("seeded starter inventory with %d batches", rows)
	}
}
