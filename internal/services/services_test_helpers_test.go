package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"stocksim/internal/models"
	"stocksim/internal/quote"
	"stocksim/internal/store"
	"stocksim/internal/websocket"

	"github.com/jmoiron/sqlx"
)

// memBook is an in-memory users+trades pair shared by the fake stores below.
type memBook struct {
	mu         sync.Mutex
	accounts   map[string]models.Account
	trades     []models.TradeInput
	audits     []models.AuditEntry
	failUpdate error
}

func newMemBook() *memBook {
	return &memBook{accounts: make(map[string]models.Account)}
}

func (b *memBook) addUser(userID string, cash int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[userID] = models.Account{UserID: userID, Cash: cash, InitialCash: cash}
}

func (b *memBook) cash(userID string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[userID].Cash
}

func (b *memBook) tradeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.trades)
}

func (b *memBook) sumValue(userID string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sum int64
	for _, t := range b.trades {
		if t.UserID == userID {
			sum += t.Value
		}
	}
	return sum
}

type snapshot struct {
	accounts map[string]models.Account
	trades   int
	audits   int
}

func (b *memBook) snapshot() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	accounts := make(map[string]models.Account, len(b.accounts))
	for k, v := range b.accounts {
		accounts[k] = v
	}
	return snapshot{accounts: accounts, trades: len(b.trades), audits: len(b.audits)}
}

func (b *memBook) restore(s snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts = s.accounts
	b.trades = b.trades[:s.trades]
	b.audits = b.audits[:s.audits]
}

// bookTxRunner rolls the book back when fn fails, like a real transaction.
type bookTxRunner struct {
	book *memBook
}

func (r bookTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	snap := r.book.snapshot()
	if err := fn(nil); err != nil {
		r.book.restore(snap)
		return err
	}
	return nil
}

type bookAccounts struct{ book *memBook }

func (s bookAccounts) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Account, error) {
	return s.GetByUser(ctx, userID)
}

func (s bookAccounts) GetByUser(ctx context.Context, userID string) (models.Account, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	account, ok := s.book.accounts[userID]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (s bookAccounts) UpdateCash(ctx context.Context, tx store.Execer, userID string, cash int64) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	if s.book.failUpdate != nil {
		return s.book.failUpdate
	}
	account := s.book.accounts[userID]
	account.Cash = cash
	s.book.accounts[userID] = account
	return nil
}

func (s bookAccounts) Reconcile(ctx context.Context, userID string) (models.Reconciliation, error) {
	account, err := s.GetByUser(ctx, userID)
	if err != nil {
		return models.Reconciliation{}, err
	}
	value := s.book.sumValue(userID)
	return models.Reconciliation{
		UserID:      userID,
		Cash:        account.Cash,
		InitialCash: account.InitialCash,
		TradeValue:  value,
		Difference:  account.Cash - (account.InitialCash - value),
	}, nil
}

type bookLedger struct{ book *memBook }

func (s bookLedger) Insert(ctx context.Context, tx store.Execer, trade models.TradeInput) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	s.book.trades = append(s.book.trades, trade)
	return nil
}

func (s bookLedger) SharesHeld(ctx context.Context, q store.Getter, userID, symbol string) (int64, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	var held int64
	for _, t := range s.book.trades {
		if t.UserID == userID && t.Symbol == symbol {
			held += t.Shares
		}
	}
	return held, nil
}

func (s bookLedger) Holdings(ctx context.Context, userID string) ([]models.Holding, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	bySymbol := map[string]*models.Holding{}
	for _, t := range s.book.trades {
		if t.UserID != userID {
			continue
		}
		h := bySymbol[t.Symbol]
		if h == nil {
			h = &models.Holding{Symbol: t.Symbol}
			bySymbol[t.Symbol] = h
		}
		h.Shares += t.Shares
		h.CostBasis += t.Value
	}
	rows := []models.Holding{}
	for _, h := range bySymbol {
		if h.Shares > 0 {
			rows = append(rows, *h)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows, nil
}

func (s bookLedger) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Trade, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	rows := []models.Trade{}
	for i := len(s.book.trades) - 1; i >= 0; i-- {
		t := s.book.trades[i]
		if t.UserID != userID {
			continue
		}
		rows = append(rows, models.Trade{ID: t.ID, UserID: t.UserID, Symbol: t.Symbol, Price: t.Price, Shares: t.Shares, Value: t.Value})
	}
	if offset >= len(rows) {
		return []models.Trade{}, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type bookAudit struct{ book *memBook }

func (s bookAudit) Log(ctx context.Context, tx store.Execer, entry models.AuditEntry) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	s.book.audits = append(s.book.audits, entry)
	return nil
}

type providerFunc func(ctx context.Context, symbol string) (quote.Quote, error)

func (f providerFunc) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	return f(ctx, symbol)
}

type recordingHub struct {
	mu      sync.Mutex
	updates []websocket.PortfolioUpdate
}

func (h *recordingHub) BroadcastPortfolio(userID string, update websocket.PortfolioUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

type recordingTrades struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingTrades) ObserveTrade(side, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, side+":"+outcome)
}

type tradingFixture struct {
	book     *memBook
	quotes   *quote.Static
	hub      *recordingHub
	recorder *recordingTrades
	service  *TradingService
}

func newTradingFixture(provider quote.Provider) *tradingFixture {
	book := newMemBook()
	static, _ := quote.NewStatic(map[string]string{"AAPL": "100.00"})
	if provider == nil {
		provider = static
	}
	f := &tradingFixture{
		book:     book,
		quotes:   static,
		hub:      &recordingHub{},
		recorder: &recordingTrades{},
	}
	f.service = NewTradingService(TradingDeps{
		TxRunner:     bookTxRunner{book: book},
		Accounts:     bookAccounts{book: book},
		Ledger:       bookLedger{book: book},
		Audit:        bookAudit{book: book},
		Quotes:       provider,
		Hub:          f.hub,
		Recorder:     f.recorder,
		QuoteTimeout: 50 * time.Millisecond,
	})
	return f
}
