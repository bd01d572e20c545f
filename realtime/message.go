package realtime

import (
	"time"

	"github.com/praxislabs/conductor/bus"
)

// Server-to-client message types.
const (
	MessageConnected = "connected"
	MessageEvent     = "event"
	MessagePing      = "ping"
	MessageError     = "error"
)

// Client-to-server message types.
const (
	MessagePong        = "pong"
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
)

// ServerMessage is the envelope for everything the manager sends.
type ServerMessage struct {
	Type         string     `json:"type"`
	ConnectionID string     `json:"connection_id,omitempty"`
	Filters      []string   `json:"filters,omitempty"`
	Source       string     `json:"source,omitempty"`
	Event        *bus.Event `json:"event,omitempty"`
	Timestamp    time.Time  `json:"timestamp,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ClientMessage is the envelope for everything clients send.
type ClientMessage struct {
	Type string `json:"type"`

	// Types carries the event types for subscribe and unsubscribe.
	Types []string `json:"types,omitempty"`
}
