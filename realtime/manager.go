package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/conductor/bus"
	"github.com/praxislabs/conductor/logging"
)

// Errors returned by the manager.
var (
	ErrClosed      = errors.New("realtime: manager closed")
	ErrUnknownConn = errors.New("realtime: unknown connection")
)

// Conn abstracts one client connection. The WebSocket adapter in this
// package implements it; tests substitute in-memory fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Config holds manager configuration.
type Config struct {
	// PingInterval between keepalive pings. Zero disables them.
	PingInterval time.Duration
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{PingInterval: 30 * time.Second}
}

// client is one tracked connection with its filters. Empty type filters
// mean every event type; an empty source means every producer.
type client struct {
	id   string
	conn Conn

	mu      sync.Mutex
	filters map[string]bool
	source  string
}

func (c *client) wants(e bus.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.filters) > 0 && !c.filters[e.Type] {
		return false
	}
	return c.source == "" || c.source == e.Source
}

func (c *client) filterList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.filters))
	for f := range c.filters {
		out = append(out, f)
	}
	return out
}

// Manager fans bus events out to connected clients.
type Manager struct {
	cfg    Config
	events *bus.Bus
	logger *logging.Logger

	mu    sync.RWMutex
	conns map[string]*client
	subID string // bus subscription id, set while conns is non-empty

	closed atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewManager creates a manager and starts its keepalive loop.
func NewManager(cfg Config, events *bus.Bus, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	m := &Manager{
		cfg:    cfg,
		events: events,
		logger: logger.WithComponent("realtime"),
		conns:  make(map[string]*client),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go m.pingLoop()
	return m
}

// Connect registers a connection and returns its assigned id. The first
// connection establishes the manager's single wildcard bus subscription.
// The client immediately receives a connected acknowledgement carrying
// its id and filters. An empty source matches every producer.
func (m *Manager) Connect(conn Conn, filters []string, source string) (string, error) {
	if m.closed.Load() {
		return "", ErrClosed
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		filters: make(map[string]bool, len(filters)),
		source:  source,
	}
	for _, f := range filters {
		if f != "" {
			c.filters[f] = true
		}
	}

	// Insert and subscribe under one critical section: a concurrent
	// broadcast pruning this connection must observe the subscription id,
	// or Disconnect would skip the last-connection unsubscribe and leak
	// the wildcard subscription. The bus never calls back into the
	// manager during Subscribe, so holding the lock here is safe.
	m.mu.Lock()
	m.conns[c.id] = c
	if len(m.conns) == 1 {
		subID, err := m.events.Subscribe(bus.Wildcard, m.broadcast)
		if err != nil {
			delete(m.conns, c.id)
			m.mu.Unlock()
			return "", err
		}
		m.subID = subID
	}
	m.mu.Unlock()

	ack := ServerMessage{
		Type:         MessageConnected,
		ConnectionID: c.id,
		Filters:      c.filterList(),
		Source:       source,
		Timestamp:    time.Now().UTC(),
	}
	if err := conn.WriteJSON(ack); err != nil {
		m.Disconnect(c.id)
		return "", err
	}

	m.logger.Info("client connected", map[string]interface{}{
		"connection_id": c.id, "filters": len(filters),
	})
	return c.id, nil
}

// Disconnect removes a connection and closes it. Removing the last
// connection drops the bus subscription.
func (m *Manager) Disconnect(id string) error {
	m.mu.Lock()
	c, ok := m.conns[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownConn
	}
	delete(m.conns, id)
	subID := ""
	if len(m.conns) == 0 {
		subID = m.subID
		m.subID = ""
	}
	m.mu.Unlock()

	c.conn.Close()
	if subID != "" {
		m.events.Unsubscribe(subID)
	}

	m.logger.Info("client disconnected", map[string]interface{}{"connection_id": id})
	return nil
}

// ConnectionCount returns the number of live connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// HandleInbound processes one raw client message. Unknown message types
// are answered with an error message rather than dropping the connection.
func (m *Manager) HandleInbound(id string, data []byte) error {
	m.mu.RLock()
	c, ok := m.conns[id]
	m.mu.RUnlock()
	if !ok {
		return ErrUnknownConn
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return c.conn.WriteJSON(ServerMessage{Type: MessageError, Error: "malformed message"})
	}

	switch msg.Type {
	case MessagePong:
		// Keepalive answer, nothing to do.
		return nil
	case MessageSubscribe:
		// Replaces the current type filters wholesale.
		next := make(map[string]bool, len(msg.Types))
		for _, t := range msg.Types {
			if t != "" {
				next[t] = true
			}
		}
		c.mu.Lock()
		c.filters = next
		c.mu.Unlock()
		return nil
	case MessageUnsubscribe:
		// Clears the filters; the client reverts to receiving everything.
		c.mu.Lock()
		c.filters = make(map[string]bool)
		c.mu.Unlock()
		return nil
	default:
		return c.conn.WriteJSON(ServerMessage{
			Type:  MessageError,
			Error: "unknown message type: " + msg.Type,
		})
	}
}

// Close shuts the manager down: the keepalive loop stops, every
// connection is closed and the bus subscription is released.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	close(m.stopCh)
	<-m.doneCh

	m.mu.Lock()
	conns := m.conns
	subID := m.subID
	m.conns = make(map[string]*client)
	m.subID = ""
	m.mu.Unlock()

	for _, c := range conns {
		c.conn.Close()
	}
	if subID != "" {
		m.events.Unsubscribe(subID)
	}
	return nil
}

// broadcast delivers one bus event to every matching connection. The
// connection set is snapshotted first so sends never run under the lock.
// Connections whose send fails are pruned after the pass.
func (m *Manager) broadcast(e bus.Event) {
	m.mu.RLock()
	targets := make([]*client, 0, len(m.conns))
	for _, c := range m.conns {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	var failed []string
	msg := ServerMessage{Type: MessageEvent, Event: &e}
	for _, c := range targets {
		if !c.wants(e) {
			continue
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			failed = append(failed, c.id)
		}
	}

	for _, id := range failed {
		m.logger.Warn("dropping unreachable client", map[string]interface{}{"connection_id": id})
		m.Disconnect(id)
	}
}

// pingLoop sends periodic keepalive pings to every connection.
func (m *Manager) pingLoop() {
	defer close(m.doneCh)

	if m.cfg.PingInterval <= 0 {
		<-m.stopCh
		return
	}

	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sendPings()
		}
	}
}

func (m *Manager) sendPings() {
	m.mu.RLock()
	targets := make([]*client, 0, len(m.conns))
	for _, c := range m.conns {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	msg := ServerMessage{Type: MessagePing, Timestamp: time.Now().UTC()}
	var failed []string
	for _, c := range targets {
		if err := c.conn.WriteJSON(msg); err != nil {
			failed = append(failed, c.id)
		}
	}
	for _, id := range failed {
		m.Disconnect(id)
	}
}
