package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/praxislabs/conductor/logging"
)

// Common errors.
var (
	ErrClosed      = errors.New("bus closed")
	ErrInvalidType = errors.New("invalid event type")
	ErrNoSuchSub   = errors.New("subscription not found")
	ErrNilHandler  = errors.New("nil handler")
)

// Handler is invoked synchronously with each matching event. Handlers that
// need to block should hand the event off to their own goroutine.
type Handler func(Event)

// Config holds bus configuration.
type Config struct {
	// HistorySize bounds the retained event history (ring buffer).
	// Default: 100.
	HistorySize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize: 100,
	}
}

// subscription is one registered handler with its filters.
type subscription struct {
	id        string
	eventType string
	source    string // empty means no source filter
	handler   Handler
}

// Bus is the in-memory publish/subscribe hub.
//
// The mutex guards the subscription table and history only; it is always
// released before any handler runs, so handlers may subscribe, unsubscribe
// and publish without deadlocking. A handler may consequently observe a
// slightly stale subscriber set.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription // event type (or Wildcard) -> ordered subs
	byID   map[string]*subscription
	hist   []Event
	start  int // ring start index
	count  int
	closed atomic.Bool

	historySize int
	logger      *logging.Logger
}

// New creates a message bus. A nil logger discards subscriber-failure logs.
func New(cfg Config, logger *logging.Logger) *Bus {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Bus{
		subs:        make(map[string][]*subscription),
		byID:        make(map[string]*subscription),
		hist:        make([]Event, cfg.HistorySize),
		historySize: cfg.HistorySize,
		logger:      logger.WithComponent("bus"),
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscription)

// WithSource restricts the subscription to events from one source.
func WithSource(source string) SubscribeOption {
	return func(s *subscription) {
		s.source = source
	}
}

// Subscribe registers a handler for an event type (or Wildcard) and returns
// the subscription id.
func (b *Bus) Subscribe(eventType string, handler Handler, opts ...SubscribeOption) (string, error) {
	if eventType == "" {
		return "", ErrInvalidType
	}
	if handler == nil {
		return "", ErrNilHandler
	}
	if b.closed.Load() {
		return "", ErrClosed
	}

	sub := &subscription{
		id:        uuid.NewString(),
		eventType: eventType,
		handler:   handler,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.byID[sub.id] = sub
	b.mu.Unlock()

	return sub.id, nil
}

// Unsubscribe removes a subscription from whichever type bucket holds it.
// After Unsubscribe returns, the handler is never invoked again.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[id]
	if !ok {
		return ErrNoSuchSub
	}
	delete(b.byID, id)

	bucket := b.subs[sub.eventType]
	for i, s := range bucket {
		if s == sub {
			b.subs[sub.eventType] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	return nil
}

// Publish appends the event to the bounded history (dropping the oldest
// once full), then delivers it synchronously: exact-type subscribers first,
// then wildcard subscribers, each in registration order. A handler panic is
// recovered and logged and never aborts delivery to remaining handlers.
func (b *Bus) Publish(event Event) error {
	if event.Type == "" {
		return ErrInvalidType
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	b.record(event)
	// Snapshot matching subscribers under the lock, deliver outside it.
	exact := append([]*subscription(nil), b.subs[event.Type]...)
	wildcard := append([]*subscription(nil), b.subs[Wildcard]...)
	b.mu.Unlock()

	for _, sub := range exact {
		b.deliver(sub, event)
	}
	for _, sub := range wildcard {
		b.deliver(sub, event)
	}
	return nil
}

// record appends an event to the ring buffer. Caller holds b.mu.
func (b *Bus) record(event Event) {
	if b.count < b.historySize {
		b.hist[(b.start+b.count)%b.historySize] = event
		b.count++
		return
	}
	// Full: overwrite the oldest slot and advance the start.
	b.hist[b.start] = event
	b.start = (b.start + 1) % b.historySize
}

// deliver invokes one handler, applying its source filter and guarding
// against panics.
func (b *Bus) deliver(sub *subscription, event Event) {
	if sub.source != "" && sub.source != event.Source {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked", map[string]interface{}{
				"subscription": sub.id,
				"event_type":   event.Type,
				"panic":        r,
			})
		}
	}()
	sub.handler(event)
}

// HistoryFilter selects a slice of the retained event history.
type HistoryFilter struct {
	// Type filters to one event type. Empty means all.
	Type string

	// Source filters to one producer. Empty means all.
	Source string

	// Limit caps the number of events returned (most recent kept).
	// Zero means no cap.
	Limit int
}

// History returns retained events matching the filter, oldest first,
// most recent last.
func (b *Bus) History(filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := make([]Event, 0, b.count)
	for i := 0; i < b.count; i++ {
		e := b.hist[(b.start+i)%b.historySize]
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		events = append(events, e)
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

// Close shuts down the bus. Further Publish and Subscribe calls fail with
// ErrClosed; history remains readable.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]*subscription)
	b.byID = make(map[string]*subscription)
	return nil
}
