package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stocksim/internal/models"
	"stocksim/internal/money"
	"stocksim/internal/quote"
	"stocksim/internal/validator"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
	lookupConcurrency   = 8
)

type AccountReader interface {
	GetByUser(ctx context.Context, userID string) (models.Account, error)
	Reconcile(ctx context.Context, userID string) (models.Reconciliation, error)
}

type LedgerReader interface {
	Holdings(ctx context.Context, userID string) ([]models.Holding, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Trade, error)
}

type ActivityReader interface {
	ListByActor(ctx context.Context, actorID string, limit int) ([]map[string]any, error)
}

type PortfolioService struct {
	accounts     AccountReader
	ledger       LedgerReader
	activity     ActivityReader
	quotes       quote.Provider
	logger       *zap.Logger
	quoteTimeout time.Duration
}

func NewPortfolioService(accounts AccountReader, ledger LedgerReader, activity ActivityReader, quotes quote.Provider, logger *zap.Logger, quoteTimeout time.Duration) *PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if quoteTimeout <= 0 {
		quoteTimeout = defaultQuoteTimeout
	}
	return &PortfolioService{
		accounts:     accounts,
		ledger:       ledger,
		activity:     activity,
		quotes:       quotes,
		logger:       logger,
		quoteTimeout: quoteTimeout,
	}
}

// Portfolio prices every holding concurrently. A holding whose lookup fails keeps its
// cost basis and is reported with QuoteAvailable false.
func (s *PortfolioService) Portfolio(ctx context.Context, userID string) (models.Portfolio, error) {
	account, err := s.accounts.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Portfolio{}, ErrUserNotFound
		}
		return models.Portfolio{}, err
	}
	holdings, err := s.ledger.Holdings(ctx, userID)
	if err != nil {
		return models.Portfolio{}, err
	}

	rows := make([]models.PortfolioHolding, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, h := range holdings {
		rows[i] = models.PortfolioHolding{
			Symbol:      h.Symbol,
			CompanyName: h.Symbol,
			Shares:      h.Shares,
			CostBasis:   h.CostBasis,
		}
		g.Go(func() error {
			q, err := s.lookup(gctx, h.Symbol)
			if err != nil {
				s.logger.Warn("portfolio lookup failed",
					zap.String("user_id", userID),
					zap.String("symbol", h.Symbol),
					zap.Error(err),
				)
				return nil
			}
			value, ok := money.MulShares(q.PriceMinor, h.Shares)
			if !ok {
				s.logger.Warn("portfolio market value overflows",
					zap.String("user_id", userID),
					zap.String("symbol", h.Symbol),
					zap.Int64("shares", h.Shares),
					zap.Int64("price", q.PriceMinor),
				)
				return nil
			}
			rows[i].CompanyName = q.CompanyName
			rows[i].Price = q.PriceMinor
			rows[i].MarketValue = value
			rows[i].QuoteAvailable = true
			return nil
		})
	}
	_ = g.Wait()

	portfolio := models.Portfolio{
		Cash:     account.Cash,
		Holdings: rows,
	}
	var fallback int64
	for _, row := range rows {
		portfolio.HoldingsCost += row.CostBasis
		if row.QuoteAvailable {
			portfolio.MarketValue += row.MarketValue
		} else {
			fallback += row.CostBasis
		}
	}
	portfolio.Total = portfolio.Cash + portfolio.HoldingsCost
	portfolio.TotalMarket = portfolio.Cash + portfolio.MarketValue + fallback
	return portfolio, nil
}

// History pages are 1-based; out-of-range values fall back to the defaults.
func (s *PortfolioService) History(ctx context.Context, userID string, page, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if page <= 0 {
		page = 1
	}
	return s.ledger.ListByUser(ctx, userID, limit, (page-1)*limit)
}

func (s *PortfolioService) Quote(ctx context.Context, rawSymbol string) (quote.Quote, error) {
	symbol, err := validator.NormalizeSymbol(rawSymbol)
	if err != nil {
		return quote.Quote{}, err
	}
	return s.lookup(ctx, symbol)
}

func (s *PortfolioService) Reconcile(ctx context.Context, userID string) (models.Reconciliation, error) {
	rec, err := s.accounts.Reconcile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reconciliation{}, ErrUserNotFound
		}
		return models.Reconciliation{}, err
	}
	if !rec.Balanced() {
		s.logger.Error("cash does not reconcile with ledger",
			zap.String("user_id", userID),
			zap.Int64("difference", rec.Difference),
		)
	}
	return rec, nil
}

func (s *PortfolioService) Activity(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = DefaultHistoryLimit
	}
	if s.activity == nil {
		return []map[string]any{}, nil
	}
	return s.activity.ListByActor(ctx, userID, limit)
}

func (s *PortfolioService) lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()
	return s.quotes.Lookup(lookupCtx, symbol)
}
