package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stocksim/internal/money"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownSymbol means the provider answered and has no such ticker.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnavailable means the provider could not be reached or answered garbage in time.
	ErrUnavailable = errors.New("quote service unavailable")
)

type Quote struct {
	Symbol      string
	CompanyName string
	Price       decimal.Decimal
	PriceMinor  int64
}

type Provider interface {
	Lookup(ctx context.Context, symbol string) (Quote, error)
}

func newQuote(symbol, companyName string, price decimal.Decimal) (Quote, error) {
	minor, err := money.FromDecimal(price)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: price %s for %s", ErrUnknownSymbol, price.String(), symbol)
	}
	if companyName == "" {
		companyName = symbol
	}
	return Quote{
		Symbol:      strings.ToUpper(symbol),
		CompanyName: companyName,
		Price:       price,
		PriceMinor:  minor,
	}, nil
}

type Static struct {
	quotes map[string]Quote
}

// ParseStatic reads "AAA:100.00,BBB:25.50" style lists.
func ParseStatic(spec string) (*Static, error) {
	s := &Static{quotes: make(map[string]Quote)}
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		symbol, rawPrice, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("static quote %q: expected SYMBOL:PRICE", item)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
		if err != nil {
			return nil, fmt.Errorf("static quote %q: %w", item, err)
		}
		if err := s.Set(strings.TrimSpace(symbol), "", price); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func NewStatic(prices map[string]string) (*Static, error) {
	s := &Static{quotes: make(map[string]Quote)}
	for symbol, raw := range prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("static quote %s: %w", symbol, err)
		}
		if err := s.Set(symbol, "", price); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Static) Set(symbol, companyName string, price decimal.Decimal) error {
	q, err := newQuote(symbol, companyName, price)
	if err != nil {
		return err
	}
	s.quotes[q.Symbol] = q
	return nil
}

func (s *Static) Lookup(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	q, ok := s.quotes[strings.ToUpper(symbol)]
	if !ok {
		return Quote{}, ErrUnknownSymbol
	}
	return q, nil
}
