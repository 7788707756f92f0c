package store

import (
	"context"
	"errors"
	"fmt"

	"stocksim/internal/models"
)

var ErrAccountNotUpdated = errors.New("account row not updated")

// AccountStore owns the cash column of users; trades are the only writers.
type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) GetByUser(ctx context.Context, userID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, cash, initial_cash
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, cash, initial_cash
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateCash(ctx context.Context, tx Execer, userID string, cash int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET cash = $1, updated_at = NOW()
		WHERE id = $2
	`, cash, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("%w: %d rows for user %s", ErrAccountNotUpdated, affected, userID)
	}
	return nil
}

// Reconcile compares stored cash with initial_cash minus the signed value of every trade.
func (s *AccountStore) Reconcile(ctx context.Context, userID string) (models.Reconciliation, error) {
	var row models.Reconciliation
	err := s.db.GetContext(ctx, &row, `
		SELECT u.id AS user_id,
		       u.cash,
		       u.initial_cash,
		       COALESCE(SUM(t.value), 0) AS trade_value,
		       (u.cash - (u.initial_cash - COALESCE(SUM(t.value), 0))) AS difference
		FROM users u
		LEFT JOIN trades t ON t.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id, u.cash, u.initial_cash
	`, userID)
	if err != nil {
		return models.Reconciliation{}, err
	}
	return row, nil
}
