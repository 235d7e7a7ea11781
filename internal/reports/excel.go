package reports

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

// WriteExcel renders a summary as an xlsx workbook.
func WriteExcel(w io.Writer, sum *Summary) error {
	file := xlsx.NewFile()

	overview, err := file.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	addRow(overview, "From", sum.Start)
	addRow(overview, "To", sum.End)
	addRow(overview, "Transactions", sum.Transactions)
	addRow(overview, "Total Amount", sum.TotalAmount)
	if sum.MostSold != nil {
		addRow(overview, "Most Sold Drug",
			fmt.Sprintf("%s - %s (Qty: %d, Amount: %.2f)",
				sum.MostSold.Name, sum.MostSold.Type, sum.MostSold.QuantitySold, sum.MostSold.AmountSold))
	} else {
		addRow(overview, "Most Sold Drug", "No sales in selected period")
	}

	medicines, err := file.AddSheet("Medicines")
	if err != nil {
		return fmt.Errorf("create medicines sheet: %w", err)
	}
	addRow(medicines, "Name", "Type", "Qty Sold", "Amount")
	for _, m := range sum.PerMedicine {
		addRow(medicines, m.Name, m.Type, m.QuantitySold, m.AmountSold)
	}

	daily, err := file.AddSheet("Daily")
	if err != nil {
		return fmt.Errorf("create daily sheet: %w", err)
	}
	addRow(daily, "Date", "Qty Sold")
	for _, d := range sum.PerDay {
		addRow(daily, d.Date, d.QuantitySold)
	}

	inventory, err := file.AddSheet("Inventory")
	if err != nil {
		return fmt.Errorf("create inventory sheet: %w", err)
	}
	addRow(inventory, "Name", "Type", "Left")
	for _, level := range sum.InventoryLeft {
		addRow(inventory, level.Name, level.Type, level.Quantity)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetValue(v)
	}
}
