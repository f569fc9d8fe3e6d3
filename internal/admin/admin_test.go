package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/board"
	"github.com/ndrandal/feed-simulator/go-feed/internal/registry"
)

func TestDashboardPushesSnapshots(t *testing.T) {
	b := board.New(map[string]float64{"AAPL": 150.0})
	reg := registry.New()
	d := New(b, reg, zerolog.New(io.Discard))

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/feed", d.Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.Prices["AAPL"] != 150.0 {
		t.Fatalf("expected AAPL price 150.0, got %v", snap.Prices["AAPL"])
	}
	if snap.ActiveSubscriptions != 0 {
		t.Fatalf("expected 0 active subscriptions, got %d", snap.ActiveSubscriptions)
	}
}
