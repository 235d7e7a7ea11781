// Package cart holds the pending sale lines of one operator session.
// Lines are ephemeral and process-local; nothing is persisted until
// checkout commits the whole cart atomically.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/prescription"
	"pharmadesk/m/internal/stock"
)

var (
	// ErrInvalidQuantity rejects zero or negative requested quantities.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrUnknownMedicine rejects groups with no sellable stock.
	ErrUnknownMedicine = errors.New("medicine not available or out of stock")
)

// StockReader is the slice of the stock ledger the cart validates against.
type StockReader interface {
	AvailableQuantity(ctx context.Context, key domain.GroupKey) (int64, error)
	Group(ctx context.Context, key domain.GroupKey) (domain.MedicineGroup, error)
}

// Line is one pending sale request. Subtotal is a display price computed at
// the group's representative (earliest batch) unit price; final pricing
// happens per batch at checkout.
type Line struct {
	Group        domain.MedicineGroup `json:"group"`
	Quantity     int64                `json:"quantity"`
	Prescription string               `json:"prescription"`
	Dosage       prescription.Dosage  `json:"dosage"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
}

// Cart accumulates validated lines against live stock.
type Cart struct {
	stock StockReader
	lines []Line
}

func New(stock StockReader) *Cart {
	return &Cart{stock: stock}
}

// AddLine validates and appends a request, merging it into an existing line
// when the (group, prescription) pair matches. The aggregate quantity
// reserved for a group across all its lines never exceeds the group's
// available quantity at call time.
func (c *Cart) AddLine(ctx context.Context, key domain.GroupKey, quantity int64, prescriptionText string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	prescriptionText = strings.TrimSpace(prescriptionText)
	dosage, err := prescription.Parse(prescriptionText)
	if err != nil {
		return err
	}

	group, err := c.stock.Group(ctx, key)
	if err != nil {
		return fmt.Errorf("look up medicine %s: %w", key, err)
	}
	if group.BatchCount == 0 || group.Quantity <= 0 {
		return ErrUnknownMedicine
	}

	available, err := c.stock.AvailableQuantity(ctx, key)
	if err != nil {
		return fmt.Errorf("check availability of %s: %w", key, err)
	}
	reserved := c.Reserved(key)
	if reserved+quantity > available {
		return stock.InsufficientStockError{Key: key, Requested: reserved + quantity, Available: available}
	}

	for i := range c.lines {
		line := &c.lines[i]
		if line.Group.Key == key && line.Prescription == prescriptionText {
			line.Group = group
			line.Quantity += quantity
			line.Subtotal = decimal.NewFromFloat(group.Price).Mul(decimal.NewFromInt(line.Quantity))
			return nil
		}
	}

	c.lines = append(c.lines, Line{
		Group:        group,
		Quantity:     quantity,
		Prescription: prescriptionText,
		Dosage:       dosage,
		Subtotal:     decimal.NewFromFloat(group.Price).Mul(decimal.NewFromInt(quantity)),
	})
	return nil
}

// RemoveLine drops the line at index. Out-of-range indexes are a silent
// no-op, tolerated for UI races between render and click.
func (c *Cart) RemoveLine(index int) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
}

// Clear empties all lines unconditionally.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the pending lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Total sums all line subtotals. Pure read.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

// Reserved sums the quantities already carted for a group, across all
// prescriptions.
func (c *Cart) Reserved(key domain.GroupKey) int64 {
	var sum int64
	for _, line := range c.lines {
		if line.Group.Key == key {
			sum += line.Quantity
		}
	}
	return sum
}
