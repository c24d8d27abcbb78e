package window

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/c360/ringbuff/errors"
	"github.com/c360/ringbuff/pkg/ring"
)

// Sample is one timestamped observation.
type Sample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Summary describes the samples held by a Window at one instant.
// All fields except Count are zero when Count is 0.
type Summary struct {
	Count  int       `json:"count"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
	Last   float64   `json:"last"`
	Oldest time.Time `json:"oldest"`
	Newest time.Time `json:"newest"`
}

// LogValue renders the summary as a slog group.
func (s Summary) LogValue() slog.Value {
	if s.Count == 0 {
		return slog.GroupValue(slog.Int("count", 0))
	}
	return slog.GroupValue(
		slog.Int("count", s.Count),
		slog.Float64("min", s.Min),
		slog.Float64("max", s.Max),
		slog.Float64("mean", s.Mean),
		slog.Float64("last", s.Last),
		slog.Duration("span", s.Newest.Sub(s.Oldest)),
	)
}

// Option configures a Window.
type Option func(*Window)

// WithClock replaces time.Now for Observe and Current.
func WithClock(clock func() time.Time) Option {
	return func(w *Window) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger sets the logger used for eviction and expiry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Window) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Window keeps the most recent samples, bounded both by count and by age.
// It is safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	samples *ring.Ring[Sample]
	maxAge  time.Duration
	clock   func() time.Time
	logger  *slog.Logger

	evicted uint64
	expired uint64
}

// NewWindow creates a window holding at most capacity samples. Samples older
// than maxAge are dropped by Expire; a maxAge of 0 disables age expiry.
func NewWindow(capacity int, maxAge time.Duration, opts ...Option) (*Window, error) {
	if maxAge < 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: max age %v", errors.ErrInvalidConfig, maxAge),
			"Window", "NewWindow", "validate max age")
	}

	r, err := ring.New[Sample](capacity)
	if err != nil {
		return nil, err
	}

	w := &Window{
		samples: r,
		maxAge:  maxAge,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "window")
	return w, nil
}

// Add records a sample. When the window is full the oldest sample is evicted
// and Add reports true.
func (w *Window) Add(at time.Time, value float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, evicted := w.samples.PushBackEvict(Sample{At: at, Value: value})
	if evicted {
		w.evicted++
	}
	return evicted
}

// Observe records value at the current clock time.
func (w *Window) Observe(value float64) bool {
	return w.Add(w.clock(), value)
}

// Expire drops every sample older than now-maxAge and returns how many were
// dropped. Survivors keep their order. Samples need not arrive in time order.
func (w *Window) Expire(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expireLocked(now)
}

func (w *Window) expireLocked(now time.Time) int {
	if w.maxAge == 0 || w.samples.IsEmpty() {
		return 0
	}

	cutoff := now.Add(-w.maxAge)
	before := w.samples.Len()
	w.samples.Retain(func(s Sample) bool { return !s.At.Before(cutoff) })
	removed := before - w.samples.Len()

	if removed > 0 {
		w.expired += uint64(removed)
		w.logger.Debug("Expired samples", "count", removed, "cutoff", cutoff, "remaining", w.samples.Len())
	}
	return removed
}

// Summary expires stale samples as of now and summarizes the rest.
func (w *Window) Summary(now time.Time) Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expireLocked(now)

	s := Summary{Count: w.samples.Len()}
	if s.Count == 0 {
		return s
	}

	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	var sum float64
	for i, sample := range w.samples.All() {
		sum += sample.Value
		s.Min = math.Min(s.Min, sample.Value)
		s.Max = math.Max(s.Max, sample.Value)
		if i == 0 || sample.At.Before(s.Oldest) {
			s.Oldest = sample.At
		}
		if i == 0 || sample.At.After(s.Newest) {
			s.Newest = sample.At
		}
		s.Last = sample.Value
	}
	s.Mean = sum / float64(s.Count)

	return s
}

// Current is Summary at the current clock time.
func (w *Window) Current() Summary {
	return w.Summary(w.clock())
}

// Values copies the held samples, oldest insertion first.
func (w *Window) Values() []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samples.AppendTo(make([]Sample, 0, w.samples.Len()))
}

// Len returns the number of held samples, including any not yet expired.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samples.Len()
}

// Cap returns the maximum number of samples.
func (w *Window) Cap() int {
	return w.samples.Cap()
}

// Reset drops every sample. Counters are kept.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples.Clear()
}

// Counters returns how many samples were evicted by capacity and expired by age.
func (w *Window) Counters() (evicted, expired uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.evicted, w.expired
}
