package stock

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pharmadesk/m/domain"
)

// InsufficientStockError reports a requirement the group's batches cannot
// cover, with the shortfall determinable from Requested - Available.
type InsufficientStockError struct {
	Key       domain.GroupKey
	Requested int64
	Available int64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d available",
		e.Key, e.Requested, e.Available)
}

// Allocation is one planned take from a batch. Subtotal is priced at the
// batch's own unit price, not a blended group average.
type Allocation struct {
	BatchID   int64
	Quantity  int64
	UnitPrice float64
	Subtotal  decimal.Decimal
}

// SumSubtotals adds up a plan's money total.
func SumSubtotals(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Subtotal)
	}
	return total
}

// Take plans required units from batches and consumes the planned
// quantities from the slice in place, so successive calls over the same
// snapshot never claim a unit twice. On error the snapshot is untouched.
func Take(key domain.GroupKey, batches []domain.Batch, required int64) ([]Allocation, error) {
	allocs, err := allocate(key, batches, required)
	if err != nil {
		return nil, err
	}
	for _, a := range allocs {
		for i := range batches {
			if batches[i].ID == a.BatchID {
				batches[i].Quantity -= a.Quantity
				break
			}
		}
	}
	return allocs, nil
}

// allocate walks batches in the given order, taking min(remaining, batch
// quantity) from each until the requirement is met. Pure computation: given
// identical batch state it always produces the same plan.
func allocate(key domain.GroupKey, batches []domain.Batch, required int64) ([]Allocation, error) {
	if required <= 0 {
		return nil, fmt.Errorf("allocate %s: required quantity %d is not positive", key, required)
	}

	remaining := required
	var allocs []Allocation
	for _, b := range batches {
		if remaining <= 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}
		take := remaining
		if b.Quantity < take {
			take = b.Quantity
		}
		subtotal := decimal.NewFromFloat(b.Price).Mul(decimal.NewFromInt(take))
		allocs = append(allocs, Allocation{
			BatchID:   b.ID,
			Quantity:  take,
			UnitPrice: b.Price,
			Subtotal:  subtotal,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, InsufficientStockError{Key: key, Requested: required, Available: required - remaining}
	}
	return allocs, nil
}
