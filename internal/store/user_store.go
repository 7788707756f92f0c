package store

import (
	"context"

	"stocksim/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

// Create also records the starting cash as initial_cash so the ledger can be reconciled later.
func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, passwordHash string, cash int64) error {
	query := `
		INSERT INTO users (id, username, password_hash, cash, initial_cash)
		VALUES ($1, $2, $3, $4, $4)
	`
	_, err := tx.ExecContext(ctx, query, id, username, passwordHash, cash)
	return err
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, password_hash, cash, initial_cash, created_at
		FROM users
		WHERE username = $1
	`, username)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, cash, initial_cash, created_at
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}
