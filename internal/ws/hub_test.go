package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nexpos/engine/internal/store"
	"github.com/nexpos/engine/internal/store/memory"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, topic string) *Client {
	return &Client{
		hub:   hub,
		topic: topic,
		send:  make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, store.CollOrders)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[store.CollOrders] == nil {
		t.Fatal("topic room not created")
	}
	if !hub.rooms[store.CollOrders][client] {
		t.Fatal("client not registered in topic room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, store.CollOrders)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[store.CollOrders] != nil {
		t.Fatal("topic room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleTopic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orders := mockClient(hub, store.CollOrders)
	tables := mockClient(hub, store.CollTables)

	// Register both clients
	hub.register <- orders
	hub.register <- tables
	time.Sleep(10 * time.Millisecond)

	// Broadcast to the orders topic only
	testPayload := json.RawMessage(`{"o1":{"status":"OPEN"}}`)
	hub.BroadcastTopic(store.CollOrders, testPayload)

	// Check the orders client receives the message
	select {
	case msg := <-orders.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Topic != store.CollOrders {
			t.Errorf("expected topic 'orders', got '%s'", received.Topic)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("orders client did not receive message")
	}

	// Check the tables client does NOT receive the message
	select {
	case <-tables.send:
		t.Fatal("tables client should not have received an orders message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameTopic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, store.CollOrders)
	client2 := mockClient(hub, store.CollOrders)
	client3 := mockClient(hub, store.CollOrders)

	// Register all clients to same topic
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast a snapshot
	hub.BroadcastTopic(store.CollOrders, json.RawMessage(`{"o1":{"status":"COMPLETED"}}`))

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Topic != store.CollOrders {
				t.Errorf("client%d: expected topic 'orders', got '%s'", i+1, received.Topic)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, store.CollShifts)
	client2 := mockClient(hub, store.CollShifts)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[store.CollShifts]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[store.CollShifts]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[store.CollShifts]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[store.CollShifts]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[store.CollShifts] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToNonExistentTopic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, store.CollOrders)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Broadcast to a topic with no subscribers
	hub.BroadcastTopic(store.CollTables, json.RawMessage(`{"test":"data"}`))

	// The orders client should NOT receive anything
	select {
	case <-client.send:
		t.Fatal("client should not receive message for different topic")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestBridgeRelaysStoreChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run()
	st := memory.New()
	if err := Bridge(ctx, hub, st); err != nil {
		t.Fatalf("bridge: %v", err)
	}

	client := mockClient(hub, store.CollOrders)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Drain any initial empty snapshot.
	select {
	case <-client.send:
	case <-time.After(100 * time.Millisecond):
	}

	if err := st.Update(ctx, []store.Op{store.Put(store.CollOrders, "o1", map[string]string{"status": "OPEN"})}); err != nil {
		t.Fatalf("update: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-client.send:
			var event Event
			if err := json.Unmarshal(msg, &event); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			var snap map[string]json.RawMessage
			if err := json.Unmarshal(event.Payload, &snap); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if _, ok := snap["o1"]; ok {
				return // change relayed
			}
		case <-deadline:
			t.Fatal("store change never reached the client")
		}
	}
}
