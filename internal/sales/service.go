// Package sales runs the checkout transaction: re-validate stock, allocate
// every cart line across batches, persist the sale and decrement the ledger
// as one atomic unit.
package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/cart"
	"pharmadesk/m/internal/stock"
)

var (
	// ErrEmptyCart rejects checkout before any database interaction.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownPatient rejects checkout for an unresolvable patient.
	ErrUnknownPatient = errors.New("patient not found")
)

// Service executes and reads back sale transactions.
type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Receipt is the committed result of a checkout.
type Receipt struct {
	Sale  domain.Sale       `json:"sale"`
	Items []domain.SaleItem `json:"items"`
}

// pendingItem pairs a planned allocation with the prescription text of the
// cart line it came from.
type pendingItem struct {
	alloc        stock.Allocation
	prescription string
}

// Checkout turns the cart into a persisted Sale. Every phase runs inside a
// single transaction: if any line cannot be validated, allocated or
// persisted, the transaction rolls back, no partial sale exists and the
// cart is left untouched so the operator can retry. On success the cart is
// cleared.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, patientID, userID int64) (*Receipt, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	var patient domain.Patient
	err = tx.GetContext(ctx, &patient,
		`SELECT id, name, age, medical_history FROM patients WHERE id = ?`, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownPatient
	}
	if err != nil {
		return nil, fmt.Errorf("resolve patient %d: %w", patientID, err)
	}

	ledger := stock.NewLedger(tx)

	// Validating: re-read availability for every line against current
	// ledger state. Stock may have moved since the line was added.
	for _, line := range lines {
		available, err := ledger.AvailableQuantity(ctx, line.Group.Key)
		if err != nil {
			return nil, err
		}
		if available < line.Quantity {
			return nil, stock.InsufficientStockError{
				Key:       line.Group.Key,
				Requested: line.Quantity,
				Available: available,
			}
		}
	}

	// Allocating: plan every line in full before touching anything. Lines
	// of one group draw from a single batch snapshot, so a later line only
	// sees what earlier lines left behind.
	var pending []pendingItem
	total := decimal.Zero
	snapshots := make(map[domain.GroupKey][]domain.Batch)
	for _, line := range lines {
		batches, ok := snapshots[line.Group.Key]
		if !ok {
			batches, err = ledger.BatchesFor(ctx, line.Group.Key)
			if err != nil {
				return nil, err
			}
			snapshots[line.Group.Key] = batches
		}
		allocs, err := stock.Take(line.Group.Key, batches, line.Quantity)
		if err != nil {
			return nil, err
		}
		for _, a := range allocs {
			pending = append(pending, pendingItem{alloc: a, prescription: line.Prescription})
			total = total.Add(a.Subtotal)
		}
	}

	// Persisting: sale header, one item per allocation, batch decrements.
	sale := domain.Sale{
		InvoiceNo:   uuid.NewString(),
		SaleDate:    time.Now().Format("2006-01-02"),
		TotalAmount: total.InexactFloat64(),
		PatientID:   patient.ID,
	}
	if userID > 0 {
		sale.UserID = &userID
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sales (invoice_no, sale_date, total_amount, patient_id, user_id) VALUES (?, ?, ?, ?, ?)`,
		sale.InvoiceNo, sale.SaleDate, sale.TotalAmount, sale.PatientID, sale.UserID)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}
	sale.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	items := make([]domain.SaleItem, 0, len(pending))
	for _, p := range pending {
		item := domain.SaleItem{
			SaleID:       sale.ID,
			MedicineID:   p.alloc.BatchID,
			Quantity:     p.alloc.Quantity,
			Subtotal:     p.alloc.Subtotal.InexactFloat64(),
			Prescription: p.prescription,
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sale_items (sale_id, medicine_id, quantity, subtotal, prescription) VALUES (?, ?, ?, ?, ?)`,
			item.SaleID, item.MedicineID, item.Quantity, item.Subtotal, item.Prescription)
		if err != nil {
			return nil, fmt.Errorf("insert sale item for batch %d: %w", p.alloc.BatchID, err)
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("insert sale item for batch %d: %w", p.alloc.BatchID, err)
		}
		if err := ledger.Decrement(ctx, p.alloc.BatchID, p.alloc.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	c.Clear()
	return &Receipt{Sale: sale, Items: items}, nil
}

// HistoryEntry is one sale in the history listing, with a display summary
// of the prescriptions dispensed.
type HistoryEntry struct {
	ID            int64   `db:"id" json:"id"`
	InvoiceNo     string  `db:"invoice_no" json:"invoice_no"`
	SaleDate      string  `db:"sale_date" json:"sale_date"`
	TotalAmount   float64 `db:"total_amount" json:"total_amount"`
	PatientName   *string `db:"patient_name" json:"patient_name,omitempty"`
	Prescriptions string  `db:"-" json:"prescriptions"`
}

// History lists all sales, newest first, each with a "Medicine:A*B*C"
// summary joined from its items in item order.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT s.id, s.invoice_no, s.sale_date, s.total_amount, p.name AS patient_name
         FROM sales s
         LEFT JOIN patients p ON p.id = s.patient_id
         ORDER BY s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}
	if len(entries) == 0 {
		return []HistoryEntry{}, nil
	}

	ids := make([]int64, len(entries))
	byID := make(map[int64]*HistoryEntry, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
		byID[entries[i].ID] = &entries[i]
	}

	query, args, err := sqlx.In(
		`SELECT si.sale_id, m.name, si.prescription
         FROM sale_items si
         JOIN medicines m ON m.id = si.medicine_id
         WHERE si.sale_id IN (?)
         ORDER BY si.id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare sale items query: %w", err)
	}
	query = s.db.Rebind(query)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID       int64
			name         string
			prescription string
		)
		if err := rows.Scan(&saleID, &name, &prescription); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		entry := byID[saleID]
		if entry == nil {
			continue
		}
		if prescription == "" {
			prescription = "-"
		}
		if entry.Prescriptions != "" {
			entry.Prescriptions += " ; "
		}
		entry.Prescriptions += name + ":" + prescription
	}
	return entries, rows.Err()
}

// PatientSaleRow is one dispensed item in a patient's purchase history.
type PatientSaleRow struct {
	SaleID       int64   `db:"sale_id" json:"sale_id"`
	SaleDate     string  `db:"sale_date" json:"sale_date"`
	Medicine     string  `db:"medicine" json:"medicine"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	Prescription string  `db:"prescription" json:"prescription"`
	Subtotal     float64 `db:"subtotal" json:"subtotal"`
	TotalAmount  float64 `db:"total_amount" json:"total_amount"`
}

// PatientHistory lists everything dispensed to one patient, newest sale
// first.
func (s *Service) PatientHistory(ctx context.Context, patientID int64) ([]PatientSaleRow, error) {
	rows := []PatientSaleRow{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT s.id AS sale_id, s.sale_date, m.name || ' - ' || m.type AS medicine,
                si.quantity, si.prescription, si.subtotal, s.total_amount
         FROM sales s
         JOIN sale_items si ON si.sale_id = s.id
         JOIN medicines m ON m.id = si.medicine_id
         WHERE s.patient_id = ?
         ORDER BY s.id DESC, si.id ASC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient history: %w", err)
	}
	return rows, nil
}
