package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Run creates the database schema. Medicines are stored as discrete batch
// rows: several rows may share (name, type) while carrying their own price,
// quantity and expiry date.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT 'Tablet',
            expiry_date TEXT,
            price REAL NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity >= 0)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_medicines_group ON medicines(name, type);`,
		`CREATE TABLE IF NOT EXISTS patients (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            age INTEGER,
            medical_history TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS stock_entries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL REFERENCES medicines(id),
            quantity_added INTEGER NOT NULL,
            entry_date TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            invoice_no TEXT NOT NULL UNIQUE,
            sale_date TEXT NOT NULL,
            total_amount REAL NOT NULL,
            patient_id INTEGER NOT NULL REFERENCES patients(id),
            user_id INTEGER REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS sale_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL REFERENCES sales(id),
            medicine_id INTEGER NOT NULL REFERENCES medicines(id),
            quantity INTEGER NOT NULL,
            subtotal REAL NOT NULL,
            prescription TEXT NOT NULL DEFAULT ''
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	bootstrapUsers(db)
}

// bootstrapUsers seeds the initial accounts so a fresh install can log in:
// one manager and one staff member. Existing usernames are left alone.
func bootstrapUsers(db *sqlx.DB) {
	accounts := []struct {
		username, password, role string
	}{
		{"admin", "admin123", "manager"},
		{"staff1", "1234", "staff"},
	}

	for _, a := range accounts {
		var exists bool
		if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, a.username); err != nil {
			log.Fatalf("bootstrap user check failed: %v", err)
		}
		if exists {
			continue
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("bootstrap password hash failed: %v", err)
		}
		if _, err := db.Exec(`INSERT INTO users (username, password, role) VALUES (?, ?, ?)`,
			a.username, hashed, a.role); err != nil {
			log.Fatalf("bootstrap user insert failed: %v", err)
		}
	}
}
