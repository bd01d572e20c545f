package realtime

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/praxislabs/conductor/logging"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// NewUpgrader creates an upgrader for accepting WebSocket connections.
func NewUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true }, // Override in production
	}
}

// wsConn adapts a gorilla connection to the Conn interface. gorilla
// permits only one concurrent writer, so writes are serialized here.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return w.conn.Close()
}

// Handler returns an HTTP handler that upgrades requests to WebSocket
// connections and registers them with the manager. Initial event type
// filters come from the "types" query parameter, comma separated; an
// optional "source" parameter restricts events to one producer.
func Handler(m *Manager, logger *logging.Logger) http.HandlerFunc {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("realtime-http")
	upgrader := NewUpgrader()

	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", map[string]interface{}{"error": err.Error()})
			return
		}
		raw.SetReadLimit(maxMessageSize)

		conn := &wsConn{conn: raw}
		query := r.URL.Query()
		id, err := m.Connect(conn, parseFilters(query.Get("types")), query.Get("source"))
		if err != nil {
			logger.Warn("connect rejected", map[string]interface{}{"error": err.Error()})
			raw.Close()
			return
		}

		for {
			_, data, err := raw.ReadMessage()
			if err != nil {
				break
			}
			if err := m.HandleInbound(id, data); err != nil {
				break
			}
		}
		m.Disconnect(id)
	}
}

func parseFilters(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
