package domain

// Sale is the immutable header of a committed checkout. Created exactly once
// together with its items and the batch decrements; never mutated afterward.
type Sale struct {
	ID          int64   `db:"id" json:"id"`
	InvoiceNo   string  `db:"invoice_no" json:"invoice_no"`
	SaleDate    string  `db:"sale_date" json:"sale_date"`
	TotalAmount float64 `db:"total_amount" json:"total_amount"`
	PatientID   int64   `db:"patient_id" json:"patient_id"`
	UserID      *int64  `db:"user_id" json:"user_id,omitempty"`
}

// SaleItem is one batch allocation of a sale. A single cart line may produce
// several items when its quantity was split across batches.
type SaleItem struct {
	ID           int64   `db:"id" json:"id"`
	SaleID       int64   `db:"sale_id" json:"sale_id"`
	MedicineID   int64   `db:"medicine_id" json:"medicine_id"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	Subtotal     float64 `db:"subtotal" json:"subtotal"`
	Prescription string  `db:"prescription" json:"prescription"`
}
