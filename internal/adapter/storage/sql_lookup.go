package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

// The books and users tables belong to the catalog and account services.
// This adapter only reads them, apart from the Put helpers used for seeding.

func (m *SQLAdapter) GetTitle(ctx context.Context, itemID string) (string, error) {
	return m.lookupString(ctx, `SELECT title FROM books WHERE id = ?`, "book "+itemID, itemID)
}

func (m *SQLAdapter) GetEmail(ctx context.Context, userID string) (string, error) {
	return m.lookupString(ctx, `SELECT email FROM users WHERE id = ?`, "user "+userID, userID)
}

func (m *SQLAdapter) GetIDByEmail(ctx context.Context, email string) (string, error) {
	return m.lookupString(ctx, `SELECT id FROM users WHERE email = ?`, "user with email "+email, email)
}

func (m *SQLAdapter) PutBook(ctx context.Context, id, title string) error {
	if _, err := m.db.ExecContext(ctx, `INSERT INTO books (id, title) VALUES (?, ?)`, id, title); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (m *SQLAdapter) PutUser(ctx context.Context, id, email string) error {
	if _, err := m.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES (?, ?)`, id, email); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *SQLAdapter) lookupString(ctx context.Context, query, what string, arg string) (string, error) {
	var value string
	err := m.db.QueryRowContext(ctx, query, arg).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", what, err)
	}
	return value, nil
}
