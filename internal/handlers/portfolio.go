package handlers

import (
	"net/http"
	"strconv"

	"stocksim/internal/middleware"
	"stocksim/internal/models"
	"stocksim/internal/websocket"
)

func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	portfolio, err := h.portfolio.Portfolio(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "portfolio_failed")
		return
	}
	holdings := make([]map[string]any, 0, len(portfolio.Holdings))
	for _, holding := range portfolio.Holdings {
		holdings = append(holdings, holdingJSON(holding))
	}
	out := map[string]any{"holdings": holdings}
	moneyJSON(out, "cash", portfolio.Cash)
	moneyJSON(out, "holdings_cost", portfolio.HoldingsCost)
	moneyJSON(out, "market_value", portfolio.MarketValue)
	moneyJSON(out, "total", portfolio.Total)
	moneyJSON(out, "total_market", portfolio.TotalMarket)
	respondJSON(w, http.StatusOK, out)
}

func holdingJSON(holding models.PortfolioHolding) map[string]any {
	out := map[string]any{
		"symbol":          holding.Symbol,
		"company_name":    holding.CompanyName,
		"shares":          holding.Shares,
		"quote_available": holding.QuoteAvailable,
	}
	moneyJSON(out, "cost_basis", holding.CostBasis)
	if holding.QuoteAvailable {
		moneyJSON(out, "price", holding.Price)
		moneyJSON(out, "market_value", holding.MarketValue)
	}
	return out
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	page := queryInt(r, "page")
	limit := queryInt(r, "limit")
	trades, err := h.portfolio.History(r.Context(), userID, page, limit)
	if err != nil {
		h.respondServiceError(w, r, err, "history_failed")
		return
	}
	rows := make([]map[string]any, 0, len(trades))
	for _, trade := range trades {
		row := map[string]any{
			"id":         trade.ID,
			"side":       trade.Side(),
			"symbol":     trade.Symbol,
			"shares":     trade.Shares,
			"created_at": trade.CreatedAt,
		}
		moneyJSON(row, "price", trade.Price)
		moneyJSON(row, "value", trade.Value)
		rows = append(rows, row)
	}
	if page <= 0 {
		page = 1
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"trades": rows,
		"page":   page,
	})
}

func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	rec, err := h.portfolio.Reconcile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err, "self_check_failed")
		return
	}
	out := map[string]any{"balanced": rec.Balanced()}
	moneyJSON(out, "cash", rec.Cash)
	moneyJSON(out, "initial_cash", rec.InitialCash)
	moneyJSON(out, "trade_value", rec.TradeValue)
	moneyJSON(out, "difference", rec.Difference)
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	rows, err := h.portfolio.Activity(r.Context(), userID, queryInt(r, "limit"))
	if err != nil {
		h.respondServiceError(w, r, err, "activity_failed")
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"activity": rows})
}

func (h *Handler) WSPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	websocket.ServeWS(w, r, h.hub, userID, h.cfg.Origins())
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}
