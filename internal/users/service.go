// Package users administers staff accounts. Only managers reach these
// operations through the API; authentication itself is shared.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"pharmadesk/m/domain"
)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidRole        = errors.New("role must be manager or staff")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrNotFound           = errors.New("user not found")
	ErrManagerUndeletable = errors.New("cannot delete manager accounts")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

func validRole(role string) bool {
	return role == domain.RoleManager || role == domain.RoleStaff
}

// Create adds a staff account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, username, password, role string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, ErrUsernameRequired
	}
	if password == "" {
		return domain.User{}, ErrPasswordRequired
	}
	if !validRole(role) {
		return domain.User{}, ErrInvalidRole
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, role) VALUES (?, ?, ?)`, username, hashed, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return domain.User{ID: id, Username: username, Role: role}, nil
}

// List returns all accounts without password hashes.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, username, role, created_at FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Update renames, re-roles and optionally re-passwords an account. An empty
// password leaves the stored hash untouched.
func (s *Service) Update(ctx context.Context, id int64, username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	if !validRole(role) {
		return ErrInvalidRole
	}

	var (
		res sql.Result
		err error
	)
	if password != "" {
		var hashed []byte
		hashed, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		res, err = s.db.ExecContext(ctx,
			`UPDATE users SET username = ?, password = ?, role = ? WHERE id = ?`, username, hashed, role, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE users SET username = ?, role = ? WHERE id = ?`, username, role, id)
	}
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("update user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a staff account. Manager accounts cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var role string
	err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load user %d: %w", id, err)
	}
	if role == domain.RoleManager {
		return ErrManagerUndeletable
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// Authenticate checks a username/password pair and returns the account
// without its hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, username, password, role FROM users WHERE username = ?`, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user %q: %w", username, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	user.Password = ""
	return user, nil
}

// ResetPassword replaces one account's password.
func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hashed, id)
	if err != nil {
		return fmt.Errorf("reset password for user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
