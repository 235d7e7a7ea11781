// Package inventory manages medicine batches: intake, edits and stock
// alerts. Batch quantities are only ever decremented by checkout; this
// package adds and corrects stock.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

var (
	ErrNameRequired    = errors.New("medicine name is required")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrBadExpiryDate   = errors.New("expiry date must be YYYY-MM-DD")
	ErrExpired         = errors.New("cannot add expired medicine")
	ErrNotFound        = errors.New("medicine not found")
)

const dateLayout = "2006-01-02"

// localMidnight is the start of t's calendar day in local time. Expiry
// cutoffs compare against the operator's wall-clock day, not the UTC day.
func localMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Service persists batch rows.
type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// validateBatch normalizes the shared add/update fields. An empty expiry is
// allowed and stored as NULL; a provided one must parse and not lie in the
// past.
func validateBatch(name string, price float64, qty int64, expiry string) (*string, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	if expiry == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, expiry, time.Local)
	if err != nil {
		return nil, ErrBadExpiryDate
	}
	if parsed.Before(localMidnight(time.Now())) {
		return nil, ErrExpired
	}
	normalized := parsed.Format(dateLayout)
	return &normalized, nil
}

// AddBatch creates a new batch row.
func (s *Service) AddBatch(ctx context.Context, name, medType, expiry string, price float64, qty int64) (domain.Batch, error) {
	expiryVal, err := validateBatch(name, price, qty, expiry)
	if err != nil {
		return domain.Batch{}, err
	}
	if medType == "" {
		medType = "Tablet"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO medicines (name, type, expiry_date, price, quantity) VALUES (?, ?, ?, ?, ?)`,
		name, medType, expiryVal, price, qty)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("insert batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Batch{}, fmt.Errorf("insert batch: %w", err)
	}
	return domain.Batch{ID: id, Name: name, Type: medType, Price: price, Quantity: qty, ExpiryDate: expiryVal}, nil
}

// UpdateBatch rewrites a batch's fields.
func (s *Service) UpdateBatch(ctx context.Context, id int64, name, medType, expiry string, price float64, qty int64) error {
	expiryVal, err := validateBatch(name, price, qty, expiry)
	if err != nil {
		return err
	}
	if medType == "" {
		medType = "Tablet"
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE medicines SET name = ?, type = ?, expiry_date = ?, price = ?, quantity = ? WHERE id = ?`,
		name, medType, expiryVal, price, qty, id)
	if err != nil {
		return fmt.Errorf("update batch %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBatch removes a batch row.
func (s *Service) DeleteBatch(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete batch %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Batch loads one batch row.
func (s *Service) Batch(ctx context.Context, id int64) (domain.Batch, error) {
	var b domain.Batch
	err := s.db.GetContext(ctx, &b,
		`SELECT id, name, type, price, quantity, expiry_date FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Batch{}, ErrNotFound
	}
	if err != nil {
		return domain.Batch{}, fmt.Errorf("load batch %d: %w", id, err)
	}
	return b, nil
}

// List returns every batch row, including sold-out ones, for the inventory
// screen.
func (s *Service) List(ctx context.Context) ([]domain.Batch, error) {
	batches := []domain.Batch{}
	err := s.db.SelectContext(ctx, &batches,
		`SELECT id, name, type, price, quantity, expiry_date FROM medicines ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// AddStock replenishes a batch and records the stock entry, atomically.
func (s *Service) AddStock(ctx context.Context, medicineID, qty int64) (domain.StockEntry, error) {
	if qty <= 0 {
		return domain.StockEntry{}, ErrInvalidQuantity
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return domain.StockEntry{}, fmt.Errorf("begin stock intake: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE medicines SET quantity = quantity + ? WHERE id = ?`, qty, medicineID)
	if err != nil {
		return domain.StockEntry{}, fmt.Errorf("replenish batch %d: %w", medicineID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.StockEntry{}, ErrNotFound
	}

	entry := domain.StockEntry{
		MedicineID:    medicineID,
		QuantityAdded: qty,
		EntryDate:     time.Now().Format(dateLayout),
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO stock_entries (medicine_id, quantity_added, entry_date) VALUES (?, ?, ?)`,
		entry.MedicineID, entry.QuantityAdded, entry.EntryDate)
	if err != nil {
		return domain.StockEntry{}, fmt.Errorf("record stock entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return domain.StockEntry{}, fmt.Errorf("record stock entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.StockEntry{}, fmt.Errorf("commit stock intake: %w", err)
	}
	return entry, nil
}
