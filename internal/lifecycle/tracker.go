// Package lifecycle tracks disposable loader instances so instances a test
// forgot to unload are torn down when the process winds down.
package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
)

var (
	// ErrTrackerClosed is returned when registering with a closed tracker.
	ErrTrackerClosed = errors.New("tracker is closed")

	// ErrDuplicateKey is returned when a key is already tracked.
	ErrDuplicateKey = errors.New("key already tracked")
)

// Unloader is anything that can be torn down with a reason.
type Unloader interface {
	Unload(reason string) error
}

// Tracker keeps every registered instance until it is released or swept.
type Tracker struct {
	entries sync.Map
	count   atomic.Int64
	mu      sync.RWMutex
	closed  bool

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(logger *logging.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics the tracker reports to.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(t *Tracker) { t.metrics = metrics }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("lifecycle")
	return t
}

var (
	defaultTracker *Tracker
	defaultOnce    sync.Once
)

// Default returns the process-wide tracker.
func Default() *Tracker {
	defaultOnce.Do(func() {
		defaultTracker = NewTracker(
			WithLogger(logging.NewDefault()),
			WithMetrics(monitoring.Default()),
		)
	})
	return defaultTracker
}

// Ensure registers u under key until it is released or swept.
func (t *Tracker) Ensure(key string, u Unloader) error {
	if key == "" {
		return fmt.Errorf("tracker key cannot be empty")
	}
	if u == nil {
		return fmt.Errorf("tracker entry %q: unloader cannot be nil", key)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrTrackerClosed
	}

	if _, loaded := t.entries.LoadOrStore(key, u); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	t.metrics.SetTracked(int(t.count.Add(1)))
	return nil
}

// Release forgets key without unloading it. It reports whether key was
// tracked.
func (t *Tracker) Release(key string) bool {
	if _, ok := t.entries.LoadAndDelete(key); !ok {
		return false
	}
	t.metrics.SetTracked(int(t.count.Add(-1)))
	return true
}

// Len returns the number of tracked entries.
func (t *Tracker) Len() int {
	return int(t.count.Load())
}

// Pending returns the tracked keys, sorted.
func (t *Tracker) Pending() []string {
	var keys []string
	t.entries.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Sweep unloads and forgets every tracked entry, returning how many were
// swept. Each entry is a leak and is logged as one.
func (t *Tracker) Sweep(reason string) int {
	swept := 0
	for _, key := range t.Pending() {
		value, ok := t.entries.LoadAndDelete(key)
		if !ok {
			continue
		}
		t.metrics.SetTracked(int(t.count.Add(-1)))
		swept++

		t.logger.Warn("sweeping leaked instance",
			zap.String("key", key),
			zap.String("reason", reason))
		if err := value.(Unloader).Unload(reason); err != nil {
			t.logger.Warn("leaked instance failed to unload",
				zap.String("key", key),
				zap.Error(err))
		}
		t.metrics.LeakSwept()
	}
	return swept
}

// Close sweeps the tracker and refuses further registrations.
func (t *Tracker) Close(reason string) int {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.Sweep(reason)
}
