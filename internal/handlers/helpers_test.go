package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stocksim/internal/auth"
	"stocksim/internal/config"
	"stocksim/internal/models"
	"stocksim/internal/quote"
	"stocksim/internal/store"

	"github.com/jmoiron/sqlx"
)

const testSecret = "secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, id, username, passwordHash string, cash int64) error
	getByUsernameFn func(ctx context.Context, username string) (models.User, error)
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, passwordHash string, cash int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, passwordHash, cash)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, entry models.AuditEntry) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, entry models.AuditEntry) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, entry)
}

type stubTrading struct {
	buyFn  func(ctx context.Context, req models.TradeRequest) (models.TradeResult, error)
	sellFn func(ctx context.Context, req models.TradeRequest) (models.TradeResult, error)
}

func (s stubTrading) Buy(ctx context.Context, req models.TradeRequest) (models.TradeResult, error) {
	return s.buyFn(ctx, req)
}

func (s stubTrading) Sell(ctx context.Context, req models.TradeRequest) (models.TradeResult, error) {
	return s.sellFn(ctx, req)
}

type stubPortfolio struct {
	portfolioFn func(ctx context.Context, userID string) (models.Portfolio, error)
	historyFn   func(ctx context.Context, userID string, page, limit int) ([]models.Trade, error)
	quoteFn     func(ctx context.Context, symbol string) (quote.Quote, error)
	reconcileFn func(ctx context.Context, userID string) (models.Reconciliation, error)
	activityFn  func(ctx context.Context, userID string, limit int) ([]map[string]any, error)
}

func (s stubPortfolio) Portfolio(ctx context.Context, userID string) (models.Portfolio, error) {
	return s.portfolioFn(ctx, userID)
}

func (s stubPortfolio) History(ctx context.Context, userID string, page, limit int) ([]models.Trade, error) {
	return s.historyFn(ctx, userID, page, limit)
}

func (s stubPortfolio) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	return s.quoteFn(ctx, symbol)
}

func (s stubPortfolio) Reconcile(ctx context.Context, userID string) (models.Reconciliation, error) {
	return s.reconcileFn(ctx, userID)
}

func (s stubPortfolio) Activity(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if s.activityFn == nil {
		return nil, nil
	}
	return s.activityFn(ctx, userID, limit)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:            "test",
		JWTSecret:         testSecret,
		TokenTTL:          time.Hour,
		StartingCashMinor: 1_000_000,
		RateLimit:         config.RateLimitConfig{PerSecond: 100, Burst: 100},
	}
}

func newTestHandler(deps Deps) http.Handler {
	if deps.Config.JWTSecret == "" {
		deps.Config = testConfig()
	}
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	return New(deps).Routes()
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}
