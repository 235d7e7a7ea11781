package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Alert thresholds: high-turnover forms keep a larger floor.
const (
	lowStockTabletThreshold  = 50
	lowStockDefaultThreshold = 30
	expiringSoonDays         = 90
)

// Alert flags one batch that needs attention.
type Alert struct {
	MedicineID int64    `json:"medicine_id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Quantity   int64    `json:"quantity"`
	ExpiryDate *string  `json:"expiry_date,omitempty"`
	DaysLeft   *int64   `json:"days_left,omitempty"`
	Messages   []string `json:"messages"`
}

// Alerts scans every batch for low stock, expiry problems and missing
// expiry dates.
func (s *Service) Alerts(ctx context.Context) ([]Alert, error) {
	batches, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	today := localMidnight(time.Now())
	alerts := []Alert{}
	for _, b := range batches {
		threshold := int64(lowStockDefaultThreshold)
		switch strings.ToLower(strings.TrimSpace(b.Type)) {
		case "tablet", "capsule":
			threshold = lowStockTabletThreshold
		}

		var messages []string
		var daysLeft *int64

		if b.Quantity < threshold {
			messages = append(messages, fmt.Sprintf("Low stock (threshold < %d)", threshold))
		}

		if b.ExpiryDate != nil {
			expiry, err := time.ParseInLocation(dateLayout, *b.ExpiryDate, time.Local)
			if err == nil {
				days := int64(expiry.Sub(today).Hours() / 24)
				daysLeft = &days
				if days < 0 {
					messages = append(messages, "Expired")
				} else if days <= expiringSoonDays {
					messages = append(messages, fmt.Sprintf("Expiring soon (%d day(s) left)", days))
				}
			}
		} else {
			messages = append(messages, "No expiry date")
		}

		if len(messages) == 0 {
			continue
		}
		alerts = append(alerts, Alert{
			MedicineID: b.ID,
			Name:       b.Name,
			Type:       b.Type,
			Quantity:   b.Quantity,
			ExpiryDate: b.ExpiryDate,
			DaysLeft:   daysLeft,
			Messages:   messages,
		})
	}
	return alerts, nil
}
