package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/04arvind/newla/pkg/agent"
	"github.com/04arvind/newla/pkg/bus"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.ServeWS)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) agent.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var event agent.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("Unmarshal %q: %v", payload, err)
	}
	return event
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	waitForClients(t, hub, 1)
	hub.Broadcast(agent.Event{RunID: "run-1", Type: "status", Status: agent.StatusPlanning})

	event := readEvent(t, conn)
	if event.RunID != "run-1" || event.Status != agent.StatusPlanning {
		t.Errorf("Event = %+v", event)
	}
}

func TestHubRelaysBusEvents(t *testing.T) {
	hub := NewHub()
	runBus := bus.NewRunBus()
	t.Cleanup(runBus.Close)
	go hub.Run(t.Context(), runBus)

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if !runBus.TryPublishEvent(agent.Event{RunID: "run-2", Type: "done", Status: agent.StatusSuccess}) {
		t.Fatal("TryPublishEvent failed")
	}

	event := readEvent(t, conn)
	if event.RunID != "run-2" || event.Type != "done" {
		t.Errorf("Event = %+v", event)
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	waitForClients(t, hub, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d after disconnect", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
