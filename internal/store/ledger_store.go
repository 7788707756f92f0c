package store

import (
	"context"

	"stocksim/internal/models"
)

// LedgerStore is append-only: trades are inserted and aggregated, never updated or deleted.
type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Insert(ctx context.Context, tx Execer, trade models.TradeInput) error {
	query := `
		INSERT INTO trades (id, user_id, symbol, price, shares, value)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, trade.ID, trade.UserID, trade.Symbol, trade.Price, trade.Shares, trade.Value)
	return err
}

func (s *LedgerStore) Holdings(ctx context.Context, userID string) ([]models.Holding, error) {
	rows := []models.Holding{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT symbol,
		       SUM(shares) AS shares,
		       SUM(value) AS cost_basis
		FROM trades
		WHERE user_id = $1
		GROUP BY symbol
		HAVING SUM(shares) > 0
		ORDER BY symbol
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SharesHeld is read inside the trade transaction, after the user row is locked.
func (s *LedgerStore) SharesHeld(ctx context.Context, q Getter, userID, symbol string) (int64, error) {
	var shares int64
	err := q.GetContext(ctx, &shares, `
		SELECT COALESCE(SUM(shares), 0)
		FROM trades
		WHERE user_id = $1 AND symbol = $2
	`, userID, symbol)
	return shares, err
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Trade, error) {
	rows := []models.Trade{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, symbol, price, shares, value, created_at
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
