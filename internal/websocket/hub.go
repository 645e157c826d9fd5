package websocket

import (
	"encoding/json"
	"sync"
)

// PositionUpdate is pushed to entity watchers after a committed ledger
// write changes a (shareholder, type, series) balance.
type PositionUpdate struct {
	ShareholderID string `json:"shareholder_id"`
	StockType     string `json:"stock_type"`
	Series        string `json:"series,omitempty"`
	Balance       int64  `json:"balance"`
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

func (h *Hub) Register(entityID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[entityID] == nil {
		h.clients[entityID] = make(map[*Client]struct{})
	}
	h.clients[entityID][client] = struct{}{}
}

func (h *Hub) Unregister(entityID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[entityID] == nil {
		return
	}
	delete(h.clients[entityID], client)
	if len(h.clients[entityID]) == 0 {
		delete(h.clients, entityID)
	}
}

func (h *Hub) BroadcastPosition(entityID string, update PositionUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[entityID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
