// Package admin serves a read-only operator dashboard over a
// WebSocket: a periodic JSON snapshot of board prices and active
// subscription counts. It never accepts commands from the browser —
// STREAM/CANCEL remain the Command Front-End's sole entry point.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/board"
	"github.com/ndrandal/feed-simulator/go-feed/internal/registry"
)

const (
	writeWait      = 10 * time.Second
	pushInterval   = 1 * time.Second
	maxMessageSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Snapshot is one push to a connected dashboard.
type Snapshot struct {
	Prices            map[string]float64 `json:"prices"`
	ActiveSubscriptions int               `json:"active_subscriptions"`
	At                  int64             `json:"at"`
}

// Dashboard holds the dependencies the /admin/feed handler reads from
// on every push.
type Dashboard struct {
	board *board.Board
	reg   *registry.Registry
	log   zerolog.Logger
}

func New(b *board.Board, reg *registry.Registry, log zerolog.Logger) *Dashboard {
	return &Dashboard{board: b, reg: reg, log: log}
}

// Handler upgrades the connection and pushes a Snapshot every
// pushInterval until the client disconnects.
func (d *Dashboard) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.log.Warn().Err(err).Msg("admin: websocket upgrade failed")
			return
		}
		defer conn.Close()

		conn.SetReadLimit(maxMessageSize)
		go drainIncoming(conn)

		ticker := time.NewTicker(pushInterval)
		defer ticker.Stop()

		for range ticker.C {
			snap := Snapshot{
				Prices:              d.board.Snapshot(),
				ActiveSubscriptions: d.reg.Count(),
				At:                  time.Now().Unix(),
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				d.log.Warn().Err(err).Msg("admin: marshal snapshot failed")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// drainIncoming discards anything the browser sends (the dashboard is
// read-only) so the connection's read side never backs up.
func drainIncoming(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
