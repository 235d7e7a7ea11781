// Package prescription parses the fixed A*B*C dosage grammar attached to
// every sale line: A units per dose, B doses per day, for C days.
package prescription

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned for anything that is not exactly A*B*C with
// positive integers. No partial parses are accepted.
var ErrInvalidFormat = errors.New("invalid prescription format, expected A*B*C")

var dosagePattern = regexp.MustCompile(`^\s*(\d+)\*(\d+)\*(\d+)\s*$`)

// Dosage is a parsed prescription triple.
type Dosage struct {
	Units       int `json:"units"`
	TimesPerDay int `json:"times_per_day"`
	Days        int `json:"days"`
}

func (d Dosage) String() string {
	return fmt.Sprintf("%d*%d*%d", d.Units, d.TimesPerDay, d.Days)
}

// Parse validates text against the dosage grammar. Surrounding whitespace
// is tolerated; zero values are not.
func Parse(text string) (Dosage, error) {
	m := dosagePattern.FindStringSubmatch(text)
	if m == nil {
		return Dosage{}, ErrInvalidFormat
	}
	parts := make([]int, 3)
	for i, s := range m[1:] {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return Dosage{}, ErrInvalidFormat
		}
		parts[i] = n
	}
	return Dosage{Units: parts[0], TimesPerDay: parts[1], Days: parts[2]}, nil
}

// UnitLabel derives the display unit for the A field from the medicine type.
// It is user feedback only and plays no part in validation or persistence.
func UnitLabel(medicineType string) string {
	switch strings.ToLower(strings.TrimSpace(medicineType)) {
	case "tablet", "capsule":
		return "tabs/caps"
	case "syrup":
		return "ml"
	default:
		return "units"
	}
}
