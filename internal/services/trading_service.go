package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stocksim/internal/db"
	"stocksim/internal/models"
	"stocksim/internal/money"
	"stocksim/internal/quote"
	"stocksim/internal/store"
	"stocksim/internal/validator"
	"stocksim/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	ErrInsufficientCash   = errors.New("can't afford")
	ErrNoHolding          = errors.New("no shares of that symbol held")
	ErrInsufficientShares = errors.New("too many shares")
	ErrUserNotFound       = errors.New("user not found")
)

const defaultQuoteTimeout = 3 * time.Second

type AccountStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Account, error)
	UpdateCash(ctx context.Context, tx store.Execer, userID string, cash int64) error
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, trade models.TradeInput) error
	SharesHeld(ctx context.Context, q store.Getter, userID, symbol string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, entry models.AuditEntry) error
}

type PortfolioHub interface {
	BroadcastPortfolio(userID string, update websocket.PortfolioUpdate)
}

type TradeRecorder interface {
	ObserveTrade(side, outcome string)
}

type TradingService struct {
	txRunner     db.TxRunner
	accountStore AccountStore
	ledgerStore  LedgerStore
	auditStore   AuditStore
	quotes       quote.Provider
	hub          PortfolioHub
	recorder     TradeRecorder
	locks        *UserLocks
	logger       *zap.Logger
	quoteTimeout time.Duration
}

type TradingDeps struct {
	TxRunner     db.TxRunner
	Accounts     AccountStore
	Ledger       LedgerStore
	Audit        AuditStore
	Quotes       quote.Provider
	Hub          PortfolioHub
	Recorder     TradeRecorder
	Locks        *UserLocks
	Logger       *zap.Logger
	QuoteTimeout time.Duration
}

func NewTradingService(deps TradingDeps) *TradingService {
	if deps.Locks == nil {
		deps.Locks = NewUserLocks()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.QuoteTimeout <= 0 {
		deps.QuoteTimeout = defaultQuoteTimeout
	}
	return &TradingService{
		txRunner:     deps.TxRunner,
		accountStore: deps.Accounts,
		ledgerStore:  deps.Ledger,
		auditStore:   deps.Audit,
		quotes:       deps.Quotes,
		hub:          deps.Hub,
		recorder:     deps.Recorder,
		locks:        deps.Locks,
		logger:       deps.Logger,
		quoteTimeout: deps.QuoteTimeout,
	}
}

func (s *TradingService) Buy(ctx context.Context, req models.TradeRequest) (models.TradeResult, error) {
	return s.trade(ctx, models.SideBuy, req)
}

func (s *TradingService) Sell(ctx context.Context, req models.TradeRequest) (models.TradeResult, error) {
	return s.trade(ctx, models.SideSell, req)
}

func (s *TradingService) trade(ctx context.Context, side models.Side, req models.TradeRequest) (models.TradeResult, error) {
	result, err := s.execute(ctx, side, req)
	if s.recorder != nil {
		s.recorder.ObserveTrade(string(side), TradeOutcome(err))
	}
	if err != nil {
		fields := []zap.Field{
			zap.String("side", string(side)),
			zap.String("user_id", req.UserID),
			zap.String("symbol", req.Symbol),
			zap.Int64("shares", req.Shares),
			zap.Error(err),
		}
		if TradeOutcome(err) == "error" {
			s.logger.Error("trade failed", fields...)
		} else {
			s.logger.Info("trade rejected", fields...)
		}
		return models.TradeResult{}, err
	}
	s.logger.Info("trade committed",
		zap.String("side", string(side)),
		zap.String("trade_id", result.TradeID),
		zap.String("user_id", req.UserID),
		zap.String("symbol", result.Symbol),
		zap.Int64("shares", result.Shares),
		zap.String("price", money.FormatMinor(result.Price)),
		zap.String("cash", money.FormatMinor(result.Cash)),
	)
	if s.hub != nil {
		s.hub.BroadcastPortfolio(req.UserID, websocket.PortfolioUpdate{
			Type:        "trade",
			TradeID:     result.TradeID,
			Side:        string(side),
			Symbol:      result.Symbol,
			Shares:      result.Shares,
			SharesHeld:  result.SharesHeld,
			Cash:        money.FormatMinor(result.Cash),
			CashDisplay: money.Display(result.Cash),
		})
	}
	return result, nil
}

func (s *TradingService) execute(ctx context.Context, side models.Side, req models.TradeRequest) (models.TradeResult, error) {
	symbol, err := validator.NormalizeSymbol(req.Symbol)
	if err != nil {
		return models.TradeResult{}, err
	}
	if req.Shares <= 0 {
		return models.TradeResult{}, validator.ErrInvalidShares
	}

	q, err := s.lookup(ctx, symbol)
	if err != nil {
		return models.TradeResult{}, err
	}

	unlock, err := s.locks.Lock(ctx, req.UserID)
	if err != nil {
		return models.TradeResult{}, err
	}
	defer unlock()

	result := models.TradeResult{
		Side:        side,
		Symbol:      q.Symbol,
		CompanyName: q.CompanyName,
		Price:       q.PriceMinor,
		Shares:      req.Shares,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Reset per attempt; WithTx may run this body more than once.
		result.TradeID = uuid.NewString()

		account, err := s.accountStore.GetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}
		held, err := s.ledgerStore.SharesHeld(ctx, tx, req.UserID, q.Symbol)
		if err != nil {
			return fmt.Errorf("shares held: %w", err)
		}
		value, ok := money.MulShares(q.PriceMinor, req.Shares)

		var signedShares, signedValue, newCash int64
		switch side {
		case models.SideBuy:
			if !ok || value > account.Cash {
				return ErrInsufficientCash
			}
			signedShares, signedValue = req.Shares, value
			newCash = account.Cash - value
			result.SharesHeld = held + req.Shares
		case models.SideSell:
			if held <= 0 {
				return ErrNoHolding
			}
			if req.Shares > held {
				return ErrInsufficientShares
			}
			if !ok {
				return fmt.Errorf("sell value overflows for %d shares at %d", req.Shares, q.PriceMinor)
			}
			signedShares, signedValue = -req.Shares, -value
			newCash = account.Cash + value
			result.SharesHeld = held - req.Shares
		default:
			return fmt.Errorf("unknown side %q", side)
		}

		if err := s.ledgerStore.Insert(ctx, tx, models.TradeInput{
			ID:     result.TradeID,
			UserID: req.UserID,
			Symbol: q.Symbol,
			Price:  q.PriceMinor,
			Shares: signedShares,
			Value:  signedValue,
		}); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
		if err := s.accountStore.UpdateCash(ctx, tx, req.UserID, newCash); err != nil {
			return fmt.Errorf("update cash: %w", err)
		}
		if s.auditStore != nil {
			if err := s.auditStore.Log(ctx, tx, models.AuditEntry{
				ActorID:    req.UserID,
				Action:     string(side),
				EntityType: "trade",
				EntityID:   result.TradeID,
				Data: map[string]any{
					"symbol": q.Symbol,
					"shares": signedShares,
					"price":  money.FormatMinor(q.PriceMinor),
					"value":  money.FormatMinor(signedValue),
				},
			}); err != nil {
				return fmt.Errorf("audit trade: %w", err)
			}
		}
		result.Value = value
		result.Cash = newCash
		return nil
	})
	if err != nil {
		return models.TradeResult{}, err
	}
	return result, nil
}

func (s *TradingService) lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()
	return s.quotes.Lookup(lookupCtx, symbol)
}

// TradeOutcome is the metrics label for a trade attempt's result.
func TradeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRejection(err):
		return "rejected"
	case errors.Is(err, quote.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, quote.ErrUnavailable):
		return "quote_unavailable"
	default:
		return "error"
	}
}

// IsRejection reports validation and business-rule failures, which never change state.
func IsRejection(err error) bool {
	for _, target := range []error{
		validator.ErrMissingSymbol,
		validator.ErrInvalidSymbol,
		validator.ErrMissingShares,
		validator.ErrInvalidShares,
		ErrInsufficientCash,
		ErrNoHolding,
		ErrInsufficientShares,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
