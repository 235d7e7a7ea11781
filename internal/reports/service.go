// Package reports aggregates committed sales over a date range.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrBadDateRange = errors.New("dates must be YYYY-MM-DD with start not after end")

const dateLayout = "2006-01-02"

// Period lengths in days, as offered by the report screen.
const (
	PeriodWeekly  = 7
	PeriodMonthly = 30
	PeriodYearly  = 365
)

type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// MedicineSales aggregates one medicine group's sold quantity and revenue.
type MedicineSales struct {
	Name         string  `db:"name" json:"name"`
	Type         string  `db:"type" json:"type"`
	QuantitySold int64   `db:"quantity_sold" json:"quantity_sold"`
	AmountSold   float64 `db:"amount_sold" json:"amount_sold"`
}

// DailyQuantity is the units dispensed on one day.
type DailyQuantity struct {
	Date         string `db:"sale_date" json:"date"`
	QuantitySold int64  `db:"quantity_sold" json:"quantity_sold"`
}

// InventoryLevel is a group's remaining aggregate stock.
type InventoryLevel struct {
	Name     string `db:"name" json:"name"`
	Type     string `db:"type" json:"type"`
	Quantity int64  `db:"quantity" json:"quantity"`
}

// Summary is the full report for one date range.
type Summary struct {
	Start         string           `json:"start"`
	End           string           `json:"end"`
	Transactions  int64            `json:"transactions"`
	TotalAmount   float64          `json:"total_amount"`
	MostSold      *MedicineSales   `json:"most_sold,omitempty"`
	PerMedicine   []MedicineSales  `json:"per_medicine"`
	PerDay        []DailyQuantity  `json:"per_day"`
	InventoryLeft []InventoryLevel `json:"inventory_left"`
}

// PeriodSummary reports the trailing n days ending today.
func (s *Service) PeriodSummary(ctx context.Context, days int) (*Summary, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	return s.Summary(ctx, start.Format(dateLayout), end.Format(dateLayout))
}

// Summary builds the report for [start, end], both inclusive ISO dates.
func (s *Service) Summary(ctx context.Context, start, end string) (*Summary, error) {
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, ErrBadDateRange
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, ErrBadDateRange
	}
	if startDate.After(endDate) {
		return nil, ErrBadDateRange
	}

	sum := &Summary{Start: start, End: end}

	err = s.db.QueryRowxContext(ctx,
		`SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM sales WHERE sale_date BETWEEN ? AND ?`,
		start, end).Scan(&sum.TotalAmount, &sum.Transactions)
	if err != nil {
		return nil, fmt.Errorf("report totals: %w", err)
	}

	sum.PerMedicine = []MedicineSales{}
	err = s.db.SelectContext(ctx, &sum.PerMedicine,
		`SELECT m.name, m.type, SUM(si.quantity) AS quantity_sold, SUM(si.subtotal) AS amount_sold
         FROM sale_items si
         JOIN sales s ON s.id = si.sale_id
         JOIN medicines m ON m.id = si.medicine_id
         WHERE s.sale_date BETWEEN ? AND ?
         GROUP BY m.name, m.type
         ORDER BY quantity_sold DESC, m.name ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("report per-medicine sales: %w", err)
	}
	if len(sum.PerMedicine) > 0 {
		top := sum.PerMedicine[0]
		sum.MostSold = &top
	}

	sum.PerDay = []DailyQuantity{}
	err = s.db.SelectContext(ctx, &sum.PerDay,
		`SELECT s.sale_date, SUM(si.quantity) AS quantity_sold
         FROM sales s
         JOIN sale_items si ON si.sale_id = s.id
         WHERE s.sale_date BETWEEN ? AND ?
         GROUP BY s.sale_date
         ORDER BY s.sale_date ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("report per-day quantities: %w", err)
	}

	sum.InventoryLeft = []InventoryLevel{}
	err = s.db.SelectContext(ctx, &sum.InventoryLeft,
		`SELECT name, type, COALESCE(SUM(quantity), 0) AS quantity
         FROM medicines
         GROUP BY name, type
         ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("report inventory levels: %w", err)
	}

	return sum, nil
}
