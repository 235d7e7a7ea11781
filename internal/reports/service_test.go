package reports

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := database.Connect(":memory:")
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)
	return db
}

// seedSale inserts a sale with one item per (medicineID, qty, subtotal)
// triple, keeping totals consistent.
func seedSale(t *testing.T, db *sqlx.DB, date string, patientID int64, items [][3]float64) {
	t.Helper()
	var total float64
	for _, it := range items {
		total += it[2]
	}
	res, err := db.Exec(`INSERT INTO sales (invoice_no, sale_date, total_amount, patient_id) VALUES (?, ?, ?, ?)`,
		date+"-"+t.Name()+"-"+randomSuffix(db, t), date, total, patientID)
	if err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	saleID, _ := res.LastInsertId()
	for _, it := range items {
		if _, err := db.Exec(`INSERT INTO sale_items (sale_id, medicine_id, quantity, subtotal, prescription) VALUES (?, ?, ?, ?, '')`,
			saleID, int64(it[0]), int64(it[1]), it[2]); err != nil {
			t.Fatalf("seed sale item: %v", err)
		}
	}
}

func randomSuffix(db *sqlx.DB, t *testing.T) string {
	t.Helper()
	var n string
	if err := db.Get(&n, `SELECT hex(randomblob(4))`); err != nil {
		t.Fatalf("random suffix: %v", err)
	}
	return n
}

func seedBatch(t *testing.T, db *sqlx.DB, name, typ string, qty int64) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO medicines (name, type, expiry_date, price, quantity) VALUES (?, ?, '2030-01-01', 2.0, ?)`,
		name, typ, qty)
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func seedPatient(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO patients (name, age, medical_history) VALUES ('Test Patient', 30, '')`)
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestSummaryRejectsBadRanges(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()

	for _, pair := range [][2]string{
		{"2026-02-30", "2026-03-01"},
		{"not-a-date", "2026-03-01"},
		{"2026-03-01", "garbage"},
		{"2026-03-02", "2026-03-01"},
	} {
		if _, err := svc.Summary(ctx, pair[0], pair[1]); !errors.Is(err, ErrBadDateRange) {
			t.Errorf("Summary(%q, %q): got %v, want ErrBadDateRange", pair[0], pair[1], err)
		}
	}
}

func TestSummaryAggregates(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	napaA := seedBatch(t, db, "Napa", "Tablet", 100)
	napaB := seedBatch(t, db, "Napa", "Tablet", 80)
	seclo := seedBatch(t, db, "Seclo", "Capsule", 40)
	patient := seedPatient(t, db)

	// Two sales in range, one before it.
	seedSale(t, db, "2026-03-01", patient, [][3]float64{
		{float64(napaA), 10, 15.0},
		{float64(seclo), 2, 12.0},
	})
	seedSale(t, db, "2026-03-03", patient, [][3]float64{
		{float64(napaB), 5, 8.0},
	})
	seedSale(t, db, "2026-02-20", patient, [][3]float64{
		{float64(seclo), 100, 600.0},
	})

	sum, err := svc.Summary(ctx, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if sum.Transactions != 2 {
		t.Errorf("transactions = %d, want 2", sum.Transactions)
	}
	if math.Abs(sum.TotalAmount-35.0) > 1e-9 {
		t.Errorf("total = %v, want 35.0", sum.TotalAmount)
	}

	// Both Napa batches fold into one group with 15 units and 23.0 revenue.
	if len(sum.PerMedicine) != 2 {
		t.Fatalf("per_medicine rows = %d, want 2", len(sum.PerMedicine))
	}
	top := sum.PerMedicine[0]
	if top.Name != "Napa" || top.QuantitySold != 15 || math.Abs(top.AmountSold-23.0) > 1e-9 {
		t.Errorf("top row = %+v, want Napa qty 15 amount 23.0", top)
	}
	if sum.MostSold == nil || sum.MostSold.Name != "Napa" {
		t.Errorf("most_sold = %+v, want Napa", sum.MostSold)
	}

	if len(sum.PerDay) != 2 {
		t.Fatalf("per_day rows = %d, want 2", len(sum.PerDay))
	}
	if sum.PerDay[0].Date != "2026-03-01" || sum.PerDay[0].QuantitySold != 12 {
		t.Errorf("per_day[0] = %+v, want 2026-03-01 qty 12", sum.PerDay[0])
	}
	if sum.PerDay[1].Date != "2026-03-03" || sum.PerDay[1].QuantitySold != 5 {
		t.Errorf("per_day[1] = %+v, want 2026-03-03 qty 5", sum.PerDay[1])
	}

	// Inventory snapshot groups batches too.
	found := map[string]int64{}
	for _, level := range sum.InventoryLeft {
		found[level.Name+"/"+level.Type] = level.Quantity
	}
	if found["Napa/Tablet"] != 180 {
		t.Errorf("inventory Napa = %d, want 180", found["Napa/Tablet"])
	}
	if found["Seclo/Capsule"] != 40 {
		t.Errorf("inventory Seclo = %d, want 40", found["Seclo/Capsule"])
	}
}

func TestSummaryEmptyRange(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)

	sum, err := svc.Summary(context.Background(), "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Transactions != 0 || sum.TotalAmount != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
	if sum.MostSold != nil {
		t.Errorf("most_sold = %+v, want nil", sum.MostSold)
	}
	if len(sum.PerMedicine) != 0 || len(sum.PerDay) != 0 {
		t.Errorf("expected empty breakdowns, got %+v", sum)
	}
}

func TestWriteExcelProducesWorkbook(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)

	napa := seedBatch(t, db, "Napa", "Tablet", 100)
	patient := seedPatient(t, db)
	seedSale(t, db, "2026-03-01", patient, [][3]float64{{float64(napa), 10, 15.0}})

	sum, err := svc.Summary(context.Background(), "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteExcel(&buf, sum); err != nil {
		t.Fatalf("write excel: %v", err)
	}
	// xlsx files are zip archives starting with PK.
	if buf.Len() == 0 || buf.Bytes()[0] != 'P' || buf.Bytes()[1] != 'K' {
		t.Errorf("output does not look like an xlsx workbook (%d bytes)", buf.Len())
	}
}
