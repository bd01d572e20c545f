package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/praxislabs/conductor/logging"
)

// Common errors.
var (
	ErrAlreadyStopped = errors.New("shutdown already initiated")
	ErrTimeout        = errors.New("shutdown timeout exceeded")
	ErrHandlerFailed  = errors.New("one or more handlers failed")
)

// Runtime teardown phases, stopped in ascending order.
const (
	// PhaseTransport stops client-facing surfaces first so no new work
	// arrives while the rest drains.
	PhaseTransport = 10

	// PhaseOrchestration stops the workflow engine and factory.
	PhaseOrchestration = 20

	// PhaseMessaging stops the event bus after its producers are gone.
	PhaseMessaging = 30

	// PhaseStorage stops the registry last so every earlier phase could
	// still persist state.
	PhaseStorage = 40
)

// StopFunc tears one component down. The context is cancelled when the
// shutdown deadline passes.
type StopFunc func(ctx context.Context) error

// Result records one handler's teardown outcome.
type Result struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Coordinator runs registered stop functions in phase order.
type Coordinator struct {
	timeout time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	handlers []registration
	once     sync.Once
	err      error
	results  []Result
	done     chan struct{}
	sigCh    chan os.Signal
}

type registration struct {
	name  string
	phase int
	stop  StopFunc
}

// NewCoordinator creates a coordinator with the given overall timeout.
// Zero means 30 seconds.
func NewCoordinator(timeout time.Duration, logger *logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Coordinator{
		timeout: timeout,
		logger:  logger.WithComponent("shutdown"),
		done:    make(chan struct{}),
		sigCh:   make(chan os.Signal, 1),
	}
}

// Register adds a stop function to a phase. Handlers within a phase run
// concurrently when shutdown executes.
func (c *Coordinator) Register(name string, phase int, stop StopFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, stop: stop})
}

// Shutdown runs every registered handler in phase order. Repeat calls
// after the first return ErrAlreadyStopped once the run is in flight,
// or the first run's error once it finished.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	ran := false
	c.once.Do(func() {
		ran = true
		c.err = c.run(ctx)
		close(c.done)
	})
	if ran {
		return c.err
	}
	select {
	case <-c.done:
		return c.err
	default:
		return ErrAlreadyStopped
	}
}

// ShutdownWithTimeout runs Shutdown bounded by the configured timeout.
func (c *Coordinator) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// HandleSignals triggers shutdown on SIGTERM or SIGINT.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-c.sigCh
		c.logger.Info("signal received, shutting down")
		c.ShutdownWithTimeout()
	}()
}

// Trigger simulates a termination signal.
func (c *Coordinator) Trigger() {
	select {
	case c.sigCh <- syscall.SIGTERM:
	default:
	}
}

// Done is closed once shutdown completes.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown outcome, nil until Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Results returns per-handler outcomes, nil until Done is closed.
func (c *Coordinator) Results() []Result {
	select {
	case <-c.done:
		return c.results
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	c.mu.Lock()
	handlers := append([]registration(nil), c.handlers...)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	var failed bool
	for _, group := range groupByPhase(handlers) {
		select {
		case <-ctx.Done():
			c.logger.Error("shutdown deadline exceeded", map[string]interface{}{
				"completed": len(c.results), "registered": len(handlers),
			})
			return ErrTimeout
		default:
		}

		for _, res := range c.runPhase(ctx, group) {
			c.results = append(c.results, res)
			if res.Err != nil {
				failed = true
				c.logger.Error("component failed to stop", map[string]interface{}{
					"component": res.Name, "error": res.Err.Error(),
				})
			} else {
				c.logger.Info("component stopped", map[string]interface{}{
					"component": res.Name, "duration": res.Duration.String(),
				})
			}
		}
	}

	if failed {
		return ErrHandlerFailed
	}
	return nil
}

// runPhase stops every handler of one phase concurrently and joins them.
func (c *Coordinator) runPhase(ctx context.Context, group []registration) []Result {
	results := make([]Result, len(group))
	var wg sync.WaitGroup
	for i, reg := range group {
		wg.Add(1)
		go func(idx int, r registration) {
			defer wg.Done()
			start := time.Now()
			err := r.stop(ctx)
			results[idx] = Result{
				Name:     r.name,
				Phase:    r.phase,
				Duration: time.Since(start),
				Err:      err,
			}
		}(i, reg)
	}
	wg.Wait()
	return results
}

func groupByPhase(handlers []registration) [][]registration {
	var groups [][]registration
	var current []registration
	for _, h := range handlers {
		if len(current) > 0 && current[len(current)-1].phase != h.phase {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, h)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
