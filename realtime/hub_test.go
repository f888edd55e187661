package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, hub *Hub, room uint, hello interface{}) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, room, hello)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastReachesOnlyItsRoom(t *testing.T) {
	hub := NewHub()
	a := dial(t, hub, 1, nil)
	b := dial(t, hub, 2, nil)
	waitFor(t, func() bool { return hub.Subscribers(1) == 1 && hub.Subscribers(2) == 1 })

	hub.Broadcast(1, map[string]string{"type": "product_update"})

	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := a.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["type"] != "product_update" {
		t.Errorf("message = %v", got)
	}

	_ = b.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Error("room 2 should not receive room 1 messages")
	}
}

func TestHelloSentOnConnect(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, 5, map[string]interface{}{"type": "hello", "room": 5})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]interface{}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["type"] != "hello" {
		t.Errorf("hello = %v", got)
	}
}

func TestClientRemovedOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, 9, nil)
	waitFor(t, func() bool { return hub.Subscribers(9) == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Subscribers(9) == 0 })
}
