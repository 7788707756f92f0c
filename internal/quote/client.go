package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to an IEX Cloud compatible quote endpoint.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

type iexQuote struct {
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"companyName"`
	LatestPrice *decimal.Decimal `json:"latestPrice"`
}

func (c *Client) Lookup(ctx context.Context, symbol string) (Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addr := fmt.Sprintf("%s/stock/%s/quote?token=%s", c.baseURL, url.PathEscape(strings.ToUpper(symbol)), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnavailable, redact(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Quote{}, ErrUnknownSymbol
	case resp.StatusCode != http.StatusOK:
		return Quote{}, fmt.Errorf("%w: GET %s/stock/%s/quote: %s", ErrUnavailable, req.URL.Host, symbol, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Quote{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" || strings.EqualFold(text, "unknown symbol") {
		return Quote{}, ErrUnknownSymbol
	}
	var payload iexQuote
	if err := json.Unmarshal(body, &payload); err != nil {
		return Quote{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if payload.Symbol == "" || payload.LatestPrice == nil {
		return Quote{}, ErrUnknownSymbol
	}
	return newQuote(payload.Symbol, payload.CompanyName, *payload.LatestPrice)
}

func redact(message, secret string) string {
	if secret == "" {
		return message
	}
	message = strings.ReplaceAll(message, url.QueryEscape(secret), "REDACTED")
	return strings.ReplaceAll(message, secret, "REDACTED")
}
