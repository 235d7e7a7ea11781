package domain

// GroupKey identifies a medicine group. Batches of the same medicine share
// a (name, type) pair while keeping their own id, price, quantity and
// expiry date.
type GroupKey struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// String renders the display form used in sale listings.
func (k GroupKey) String() string {
	return k.Name + " - " + k.Type
}

// Batch is one received lot of a medicine. Expiry dates are stored as
// YYYY-MM-DD text; nil means the expiry is unknown.
type Batch struct {
	ID         int64   `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Type       string  `db:"type" json:"type"`
	Price      float64 `db:"price" json:"price"`
	Quantity   int64   `db:"quantity" json:"quantity"`
	ExpiryDate *string `db:"expiry_date" json:"expiry_date,omitempty"`
}

// Group returns the batch's medicine group key.
func (b Batch) Group() GroupKey {
	return GroupKey{Name: b.Name, Type: b.Type}
}

// MedicineGroup is the aggregated view of all positive-quantity batches
// sharing a group key. Price is the earliest-expiring batch's price and is
// only a display price; checkout prices each allocation at its own batch.
type MedicineGroup struct {
	Key            GroupKey `json:"key"`
	Price          float64  `json:"price"`
	Quantity       int64    `json:"quantity"`
	BatchCount     int      `json:"batch_count"`
	EarliestExpiry *string  `json:"earliest_expiry,omitempty"`
}

// StockEntry records a replenishment of a batch.
type StockEntry struct {
	ID            int64  `db:"id" json:"id"`
	MedicineID    int64  `db:"medicine_id" json:"medicine_id"`
	QuantityAdded int64  `db:"quantity_added" json:"quantity_added"`
	EntryDate     string `db:"entry_date" json:"entry_date"`
}
