package websocket

import (
	"encoding/json"
	"testing"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 1)}
}

func TestHubBroadcastScopedToEntity(t *testing.T) {
	hub := NewHub()
	watcher := newTestClient()
	outsider := newTestClient()
	hub.Register("e1", watcher)
	hub.Register("e2", outsider)

	hub.BroadcastPosition("e1", PositionUpdate{
		ShareholderID: "sh-1",
		StockType:     "COMMON",
		Balance:       600,
	})

	select {
	case payload := <-watcher.send:
		var update PositionUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			t.Fatalf("payload must be JSON: %v", err)
		}
		if update.ShareholderID != "sh-1" || update.Balance != 600 {
			t.Fatalf("unexpected update: %#v", update)
		}
	default:
		t.Fatal("registered watcher received nothing")
	}
	select {
	case <-outsider.send:
		t.Fatal("update leaked to another entity's watcher")
	default:
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	client := newTestClient()
	hub.Register("e1", client)
	hub.Unregister("e1", client)

	hub.BroadcastPosition("e1", PositionUpdate{ShareholderID: "sh-1", Balance: 1})

	select {
	case <-client.send:
		t.Fatal("unregistered client still receives updates")
	default:
	}
}

func TestHubSkipsSlowClients(t *testing.T) {
	hub := NewHub()
	slow := newTestClient()
	slow.send <- []byte("backlog")
	hub.Register("e1", slow)

	done := make(chan struct{})
	go func() {
		hub.BroadcastPosition("e1", PositionUpdate{ShareholderID: "sh-1", Balance: 1})
		close(done)
	}()
	<-done
}
