package handlers

import (
	"context"

	"stocksim/internal/models"
	"stocksim/internal/quote"
	"stocksim/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, passwordHash string, cash int64) error
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, entry models.AuditEntry) error
}

type TradingService interface {
	Buy(ctx context.Context, req models.TradeRequest) (models.TradeResult, error)
	Sell(ctx context.Context, req models.TradeRequest) (models.TradeResult, error)
}

type PortfolioService interface {
	Portfolio(ctx context.Context, userID string) (models.Portfolio, error)
	History(ctx context.Context, userID string, page, limit int) ([]models.Trade, error)
	Quote(ctx context.Context, symbol string) (quote.Quote, error)
	Reconcile(ctx context.Context, userID string) (models.Reconciliation, error)
	Activity(ctx context.Context, userID string, limit int) ([]map[string]any, error)
}
