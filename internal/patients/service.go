// Package patients keeps the patient registry referenced by sales.
package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmadesk/m/domain"
)

var (
	ErrNameRequired = errors.New("patient name is required")
	ErrInvalidAge   = errors.New("age must be greater than zero")
	ErrNotFound     = errors.New("patient not found")
)

type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

func validate(name string, age *int64) error {
	if name == "" {
		return ErrNameRequired
	}
	if age != nil && *age <= 0 {
		return ErrInvalidAge
	}
	return nil
}

// Create registers a patient. Age may be unknown.
func (s *Service) Create(ctx context.Context, name string, age *int64, history string) (domain.Patient, error) {
	if err := validate(name, age); err != nil {
		return domain.Patient{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (name, age, medical_history) VALUES (?, ?, ?)`, name, age, history)
	if err != nil {
		return domain.Patient{}, fmt.Errorf("insert patient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Patient{}, fmt.Errorf("insert patient: %w", err)
	}
	return domain.Patient{ID: id, Name: name, Age: age, MedicalHistory: history}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Patient, error) {
	var p domain.Patient
	err := s.db.GetContext(ctx, &p,
		`SELECT id, name, age, medical_history FROM patients WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Patient{}, ErrNotFound
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("load patient %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Patient, error) {
	out := []domain.Patient{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, name, age, medical_history FROM patients ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, name string, age *int64, history string) error {
	if err := validate(name, age); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE patients SET name = ?, age = ?, medical_history = ? WHERE id = ?`, name, age, history, id)
	if err != nil {
		return fmt.Errorf("update patient %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
