package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/printersim/internal/pkg/metrics"
	"github.com/autopeer-io/printersim/internal/simulator/command"
	"github.com/autopeer-io/printersim/pkg/log"
)

const (
	watchWriteWait  = 5 * time.Second
	watchReadLimit  = 512
	defaultInterval = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
}

// watcher pushes a status snapshot, wrapped exactly like the MQTT push, to
// each websocket client on every interval. Clients never send data; their
// reads only serve control frames and close detection.
type watcher struct {
	status   StatusSource
	interval time.Duration
}

func (h *watcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	metrics.WatchClients.Inc()
	defer metrics.WatchClients.Dec()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(watchReadLimit)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	interval := h.interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		if err := conn.WriteJSON(command.StatusPush(h.status.Snapshot("0"))); err != nil {
			log.Debug("Websocket watcher gone", "remote", r.RemoteAddr, "error", err)
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-r.Context().Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(watchWriteWait))
			return
		}
	}
}
