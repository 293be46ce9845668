package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/vibes-platform/internal/app"
	"github.com/AnshRaj112/vibes-platform/internal/metrics"
)

const (
	stateWriteWait  = 10 * time.Second
	statePongWait   = 60 * time.Second
	statePingPeriod = (statePongWait * 9) / 10
)

// stateUpgrader is the shared upgrader for state streams. Origins are checked
// by the CORS layer before the upgrade.
var stateUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateMessage is one frame of the state stream.
type StateMessage struct {
	Type  string       `json:"type"`
	State app.Snapshot `json:"state"`
}

// StateWebSocket streams the client's workspace snapshot: one frame on
// connect and one after every change. Only the latest pending snapshot is
// kept when the client reads slowly.
func StateWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	conn, err := stateUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	updates := make(chan app.Snapshot, 1)
	push := func(s app.Snapshot) {
		select {
		case updates <- s:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		}
	}
	unsubscribe := ws.Subscribe(push)
	defer unsubscribe()
	push(ws.Snapshot())

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(statePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(statePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case s := <-updates:
			conn.SetWriteDeadline(time.Now().Add(stateWriteWait))
			if err := conn.WriteJSON(StateMessage{Type: "state", State: s}); err != nil {
				log.Debug("state stream closed", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(stateWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
