package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"stocksim/internal/middleware"
	"stocksim/internal/models"
	"stocksim/internal/quote"
	"stocksim/internal/validator"

	"github.com/go-chi/chi/v5"
)

// lenientString accepts a JSON string or a bare number, so shares may arrive as 10 or "10".
type lenientString string

func (s *lenientString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = lenientString(raw)
		return nil
	}
	*s = lenientString(data)
	return nil
}

type tradeRequest struct {
	Symbol string        `json:"symbol"`
	Shares lenientString `json:"shares"`
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.trading.Buy)
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.trading.Sell)
}

type tradeFunc func(ctx context.Context, req models.TradeRequest) (models.TradeResult, error)

func (h *Handler) trade(w http.ResponseWriter, r *http.Request, run tradeFunc) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req tradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondServiceError(w, r, err, "trade_failed")
		return
	}
	symbol, err := validator.NormalizeSymbol(req.Symbol)
	if err != nil {
		h.respondServiceError(w, r, err, "trade_failed")
		return
	}
	shares, err := validator.ParseShares(string(req.Shares))
	if err != nil {
		h.respondServiceError(w, r, err, "trade_failed")
		return
	}
	result, err := run(r.Context(), models.TradeRequest{UserID: userID, Symbol: symbol, Shares: shares})
	if err != nil {
		h.respondServiceError(w, r, err, "trade_failed")
		return
	}
	out := map[string]any{
		"trade_id":     result.TradeID,
		"side":         result.Side,
		"symbol":       result.Symbol,
		"company_name": result.CompanyName,
		"shares":       result.Shares,
		"shares_held":  result.SharesHeld,
	}
	moneyJSON(out, "price", result.Price)
	moneyJSON(out, "value", result.Value)
	moneyJSON(out, "cash", result.Cash)
	respondJSON(w, http.StatusCreated, out)
}

func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	h.quote(w, r, chi.URLParam(r, "symbol"))
}

type quoteRequest struct {
	Symbol string `json:"symbol"`
}

func (h *Handler) PostQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondServiceError(w, r, err, "quote_failed")
		return
	}
	h.quote(w, r, req.Symbol)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request, symbol string) {
	q, err := h.portfolio.Quote(r.Context(), symbol)
	if err != nil {
		h.respondServiceError(w, r, err, "quote_failed")
		return
	}
	respondJSON(w, http.StatusOK, quoteJSON(q))
}

func quoteJSON(q quote.Quote) map[string]any {
	out := map[string]any{
		"symbol":       q.Symbol,
		"company_name": q.CompanyName,
	}
	moneyJSON(out, "price", q.PriceMinor)
	return out
}
