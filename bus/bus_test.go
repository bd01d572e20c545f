package bus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/praxislabs/conductor/logging"
)

func newTestBus(historySize int) *Bus {
	return New(Config{HistorySize: historySize}, logging.Nop())
}

// --- Unit Tests ---

func TestPublish_InvalidType(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	err := b.Publish(Event{Source: "s1"})
	if err != ErrInvalidType {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	if _, err := b.Subscribe("task.completed", nil); err != ErrNilHandler {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestPublish_TypeMatching(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	var completed, wildcard, failed int
	b.Subscribe("task.completed", func(Event) { completed++ })
	b.Subscribe(Wildcard, func(Event) { wildcard++ })
	b.Subscribe("task.failed", func(Event) { failed++ })

	if err := b.Publish(NewEvent("task.completed", "s1", nil)); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if completed != 1 {
		t.Errorf("exact subscriber invoked %d times, want 1", completed)
	}
	if wildcard != 1 {
		t.Errorf("wildcard subscriber invoked %d times, want 1", wildcard)
	}
	if failed != 0 {
		t.Errorf("non-matching subscriber invoked %d times, want 0", failed)
	}
}

func TestPublish_ExactBeforeWildcard(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	var order []string
	b.Subscribe(Wildcard, func(Event) { order = append(order, "wildcard") })
	b.Subscribe("task.completed", func(Event) { order = append(order, "exact-1") })
	b.Subscribe("task.completed", func(Event) { order = append(order, "exact-2") })

	b.Publish(NewEvent("task.completed", "s1", nil))

	want := []string{"exact-1", "exact-2", "wildcard"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestPublish_SourceFilter(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	var got []string
	b.Subscribe(Wildcard, func(e Event) { got = append(got, e.Source) }, WithSource("engine"))

	b.Publish(NewEvent("task.completed", "engine", nil))
	b.Publish(NewEvent("task.completed", "factory", nil))

	if len(got) != 1 || got[0] != "engine" {
		t.Errorf("source-filtered subscriber saw %v, want [engine]", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	var calls int
	id, err := b.Subscribe("task.completed", func(Event) { calls++ })
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	b.Publish(NewEvent("task.completed", "s1", nil))
	if err := b.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe error: %v", err)
	}
	b.Publish(NewEvent("task.completed", "s1", nil))

	if calls != 1 {
		t.Errorf("handler invoked %d times, want 1 (never after unsubscribe)", calls)
	}

	if err := b.Unsubscribe(id); err != ErrNoSuchSub {
		t.Errorf("second Unsubscribe = %v, want ErrNoSuchSub", err)
	}
}

func TestPublish_HandlerPanicSuppressed(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	var after int
	b.Subscribe("task.completed", func(Event) { panic("boom") })
	b.Subscribe("task.completed", func(Event) { after++ })

	if err := b.Publish(NewEvent("task.completed", "s1", nil)); err != nil {
		t.Fatalf("Publish should not fail on handler panic, got %v", err)
	}
	if after != 1 {
		t.Error("handler after the panicking one should still run")
	}
}

func TestHistory_RingBuffer(t *testing.T) {
	b := newTestBus(3)
	defer b.Close()

	for i := 1; i <= 5; i++ {
		b.Publish(NewEvent(fmt.Sprintf("e%d", i), "s1", nil))
	}

	hist := b.History(HistoryFilter{})
	if len(hist) != 3 {
		t.Fatalf("history length = %d, want 3", len(hist))
	}
	for i, want := range []string{"e3", "e4", "e5"} {
		if hist[i].Type != want {
			t.Errorf("history[%d].Type = %s, want %s", i, hist[i].Type, want)
		}
	}
}

func TestHistory_Filters(t *testing.T) {
	b := newTestBus(10)
	defer b.Close()

	b.Publish(NewEvent("task.completed", "engine", nil))
	b.Publish(NewEvent("task.failed", "engine", nil))
	b.Publish(NewEvent("task.completed", "factory", nil))
	b.Publish(NewEvent("task.completed", "engine", nil))

	byType := b.History(HistoryFilter{Type: "task.completed"})
	if len(byType) != 3 {
		t.Errorf("type filter returned %d events, want 3", len(byType))
	}

	bySource := b.History(HistoryFilter{Type: "task.completed", Source: "engine"})
	if len(bySource) != 2 {
		t.Errorf("type+source filter returned %d events, want 2", len(bySource))
	}

	limited := b.History(HistoryFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("limit filter returned %d events, want 2", len(limited))
	}
	if limited[1].Source != "engine" || limited[1].Type != "task.completed" {
		t.Error("limit should keep the most recent events, last one newest")
	}
}

func TestClose(t *testing.T) {
	b := newTestBus(0)

	b.Publish(NewEvent("task.completed", "s1", nil))
	if err := b.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if err := b.Publish(NewEvent("task.completed", "s1", nil)); err != ErrClosed {
		t.Errorf("Publish after close = %v, want ErrClosed", err)
	}
	if _, err := b.Subscribe("task.completed", func(Event) {}); err != ErrClosed {
		t.Errorf("Subscribe after close = %v, want ErrClosed", err)
	}

	// History survives close.
	if got := len(b.History(HistoryFilter{})); got != 1 {
		t.Errorf("history after close = %d events, want 1", got)
	}
}

// --- Integration Tests ---

func TestPublish_ConcurrentProducers(t *testing.T) {
	b := newTestBus(1000)
	defer b.Close()

	var mu sync.Mutex
	var received int
	b.Subscribe(Wildcard, func(Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				b.Publish(NewEvent("task.completed", fmt.Sprintf("producer-%d", n), nil))
			}
		}(i)
	}
	wg.Wait()

	if received != 200 {
		t.Errorf("received %d events, want 200", received)
	}
	if got := len(b.History(HistoryFilter{})); got != 200 {
		t.Errorf("history holds %d events, want 200", got)
	}
}

func TestEmitters_CorrelationID(t *testing.T) {
	b := newTestBus(0)
	defer b.Close()

	var events []Event
	b.Subscribe(Wildcard, func(e Event) { events = append(events, e) })

	b.EmitWorkflowStarted("engine", "exec-1", "wf-1")
	b.EmitTaskStarted("engine", "exec-1", "research")
	b.EmitTaskCompleted("engine", "exec-1", "research", map[string]interface{}{"ok": true})
	b.EmitTaskFailed("engine", "exec-1", "report", "capability unavailable")
	b.EmitWorkflowFailed("engine", "exec-1", "wf-1", 1)

	wantTypes := []string{
		TypeWorkflowStarted, TypeTaskStarted, TypeTaskCompleted, TypeTaskFailed, TypeWorkflowFailed,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("received %d events, want %d", len(events), len(wantTypes))
	}
	for i, e := range events {
		if e.Type != wantTypes[i] {
			t.Errorf("event[%d].Type = %s, want %s", i, e.Type, wantTypes[i])
		}
		if e.CorrelationID != "exec-1" {
			t.Errorf("event[%d].CorrelationID = %q, want exec-1", i, e.CorrelationID)
		}
		if e.Timestamp.Location() != e.Timestamp.UTC().Location() {
			t.Errorf("event[%d] timestamp not UTC", i)
		}
	}
}
