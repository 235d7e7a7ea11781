// Package stock owns per-batch quantity state: availability queries, the
// FEFO batch allocator and guarded decrements.
package stock

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

// Ledger reads and mutates batch rows. It runs against either the live
// database or an open transaction, so checkout can re-read and decrement
// inside one atomic unit.
type Ledger struct {
	q sqlx.ExtContext
}

// NewLedger wraps a *sqlx.DB or *sqlx.Tx.
func NewLedger(q sqlx.ExtContext) *Ledger {
	return &Ledger{q: q}
}

// AvailableQuantity is the aggregate quantity of a medicine group across
// its positive-quantity batches.
func (l *Ledger) AvailableQuantity(ctx context.Context, key domain.GroupKey) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, l.q, &total,
		`SELECT COALESCE(SUM(quantity), 0) FROM medicines WHERE name = ? AND type = ? AND quantity > 0`,
		key.Name, key.Type)
	if err != nil {
		return 0, fmt.Errorf("available quantity for %s: %w", key, err)
	}
	return total, nil
}

// BatchesFor returns a group's batches in allocation priority order:
// soonest expiry first, unknown expiry last, ascending id as tiebreak.
func (l *Ledger) BatchesFor(ctx context.Context, key domain.GroupKey) ([]domain.Batch, error) {
	var batches []domain.Batch
	err := sqlx.SelectContext(ctx, l.q, &batches,
		`SELECT id, name, type, price, quantity, expiry_date
         FROM medicines
         WHERE name = ? AND type = ? AND quantity > 0
         ORDER BY expiry_date IS NULL, expiry_date ASC, id ASC`,
		key.Name, key.Type)
	if err != nil {
		return nil, fmt.Errorf("batches for %s: %w", key, err)
	}
	return batches, nil
}

// Group aggregates a single medicine group. Returns quantity zero and
// BatchCount zero when no sellable batch exists.
func (l *Ledger) Group(ctx context.Context, key domain.GroupKey) (domain.MedicineGroup, error) {
	batches, err := l.BatchesFor(ctx, key)
	if err != nil {
		return domain.MedicineGroup{}, err
	}
	return aggregate(key, batches), nil
}

// Groups lists every sellable medicine group, aggregated, ordered by name.
func (l *Ledger) Groups(ctx context.Context) ([]domain.MedicineGroup, error) {
	var batches []domain.Batch
	err := sqlx.SelectContext(ctx, l.q, &batches,
		`SELECT id, name, type, price, quantity, expiry_date
         FROM medicines
         WHERE quantity > 0
         ORDER BY name ASC, expiry_date IS NULL, expiry_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list medicine groups: %w", err)
	}

	var out []domain.MedicineGroup
	index := make(map[domain.GroupKey]int)
	for _, b := range batches {
		key := b.Group()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, aggregate(key, []domain.Batch{b}))
			continue
		}
		out[i].Quantity += b.Quantity
		out[i].BatchCount++
	}
	return out, nil
}

// aggregate assumes batches are already in allocation order, so the first
// batch supplies the representative price and earliest expiry.
func aggregate(key domain.GroupKey, batches []domain.Batch) domain.MedicineGroup {
	g := domain.MedicineGroup{Key: key}
	for i, b := range batches {
		if i == 0 {
			g.Price = b.Price
			g.EarliestExpiry = b.ExpiryDate
		}
		g.Quantity += b.Quantity
		g.BatchCount++
	}
	return g
}

// Decrement takes qty units from one batch. The guard keeps quantity from
// ever going negative; zero rows affected means the batch changed underneath
// the caller and the surrounding transaction must abort.
func (l *Ledger) Decrement(ctx context.Context, batchID, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("decrement batch %d: quantity %d is not positive", batchID, qty)
	}
	res, err := l.q.ExecContext(ctx,
		`UPDATE medicines SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`,
		qty, batchID, qty)
	if err != nil {
		return fmt.Errorf("decrement batch %d: %w", batchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement batch %d: %w", batchID, err)
	}
	if n == 0 {
		return fmt.Errorf("decrement batch %d: insufficient remaining quantity", batchID)
	}
	return nil
}
