package websocket

import (
	"encoding/json"
	"sync"
)

type PortfolioUpdate struct {
	Type        string `json:"type"`
	TradeID     string `json:"trade_id"`
	Side        string `json:"side"`
	Symbol      string `json:"symbol"`
	Shares      int64  `json:"shares"`
	SharesHeld  int64  `json:"shares_held"`
	Cash        string `json:"cash"`
	CashDisplay string `json:"cash_display"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastPortfolio never blocks a trade: a client with a full buffer misses the update.
func (h *Hub) BroadcastPortfolio(userID string, update PortfolioUpdate) {
	if update.Type == "" {
		update.Type = "trade"
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
