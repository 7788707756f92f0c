package models

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// All money fields are integer cents.

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Cash         int64     `db:"cash" json:"cash"`
	InitialCash  int64     `db:"initial_cash" json:"initial_cash"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Account struct {
	UserID      string `db:"id" json:"user_id"`
	Cash        int64  `db:"cash" json:"cash"`
	InitialCash int64  `db:"initial_cash" json:"initial_cash"`
}

type Trade struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Price     int64     `db:"price" json:"price"`
	Shares    int64     `db:"shares" json:"shares"`
	Value     int64     `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (t Trade) Side() Side {
	if t.Shares < 0 {
		return SideSell
	}
	return SideBuy
}

type TradeInput struct {
	ID     string
	UserID string
	Symbol string
	Price  int64
	Shares int64
	Value  int64
}

type Holding struct {
	Symbol    string `db:"symbol" json:"symbol"`
	Shares    int64  `db:"shares" json:"shares"`
	CostBasis int64  `db:"cost_basis" json:"cost_basis"`
}

type Reconciliation struct {
	UserID      string `db:"user_id" json:"user_id"`
	Cash        int64  `db:"cash" json:"cash"`
	InitialCash int64  `db:"initial_cash" json:"initial_cash"`
	TradeValue  int64  `db:"trade_value" json:"trade_value"`
	Difference  int64  `db:"difference" json:"difference"`
}

func (r Reconciliation) Balanced() bool {
	return r.Difference == 0
}

type AuditEntry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Data       map[string]any
}

type TradeRequest struct {
	UserID string
	Symbol string
	Shares int64
}

type TradeResult struct {
	TradeID     string
	Side        Side
	Symbol      string
	CompanyName string
	Price       int64
	Shares      int64
	Value       int64
	Cash        int64
	SharesHeld  int64
}

type PortfolioHolding struct {
	Symbol         string
	CompanyName    string
	Shares         int64
	CostBasis      int64
	Price          int64
	MarketValue    int64
	QuoteAvailable bool
}

type Portfolio struct {
	Cash         int64
	HoldingsCost int64
	MarketValue  int64
	Total        int64
	TotalMarket  int64
	Holdings     []PortfolioHolding
}
