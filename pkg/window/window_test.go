package window

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/c360/ringbuff/errors"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock is advanced by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type WindowSuite struct {
	suite.Suite
	clock *fakeClock
	win   *Window
}

func (s *WindowSuite) SetupTest() {
	s.clock = &fakeClock{now: epoch}
	w, err := NewWindow(4, 10*time.Second, WithClock(s.clock.Now))
	s.Require().NoError(err)
	s.win = w
}

func (s *WindowSuite) values() []float64 {
	var out []float64
	for _, sample := range s.win.Values() {
		out = append(out, sample.Value)
	}
	return out
}

func (s *WindowSuite) TestObserveUsesClock() {
	s.win.Observe(1)
	s.clock.Advance(time.Second)
	s.win.Observe(2)

	got := s.win.Values()
	s.Require().Len(got, 2)
	s.Equal(Sample{At: epoch, Value: 1}, got[0])
	s.Equal(Sample{At: epoch.Add(time.Second), Value: 2}, got[1])
}

func (s *WindowSuite) TestCapacityEvictsOldest() {
	for v := 1; v <= 6; v++ {
		evicted := s.win.Observe(float64(v))
		s.Equal(v > 4, evicted, "sample %d", v)
	}

	s.Equal([]float64{3, 4, 5, 6}, s.values())
	evicted, expired := s.win.Counters()
	s.Equal(uint64(2), evicted)
	s.Zero(expired)
}

func (s *WindowSuite) TestExpireByAge() {
	for v := 1; v <= 4; v++ {
		s.win.Observe(float64(v))
		s.clock.Advance(5 * time.Second)
	}
	// Samples at 0s, 5s, 10s, 15s; now is 20s, cutoff 10s.
	s.Equal(2, s.win.Expire(s.clock.Now()))
	s.Equal([]float64{3, 4}, s.values())

	s.Zero(s.win.Expire(s.clock.Now()), "expiry is idempotent")

	_, expired := s.win.Counters()
	s.Equal(uint64(2), expired)
}

func (s *WindowSuite) TestExpireKeepsBoundary() {
	s.win.Add(epoch, 1)
	s.Zero(s.win.Expire(epoch.Add(10*time.Second)), "a sample exactly maxAge old is kept")
	s.Equal(1, s.win.Expire(epoch.Add(10*time.Second+time.Nanosecond)))
}

func (s *WindowSuite) TestExpireOutOfOrder() {
	s.win.Add(epoch.Add(8*time.Second), 1)
	s.win.Add(epoch.Add(1*time.Second), 2) // late arrival
	s.win.Add(epoch.Add(9*time.Second), 3)
	s.win.Add(epoch.Add(2*time.Second), 4) // late arrival

	s.Equal(2, s.win.Expire(epoch.Add(15*time.Second)))
	s.Equal([]float64{1, 3}, s.values(), "survivors keep insertion order")
}

func (s *WindowSuite) TestExpireAfterWrap() {
	for v := 1; v <= 7; v++ {
		s.win.Observe(float64(v))
		s.clock.Advance(3 * time.Second)
	}
	// Held: 4@9s 5@12s 6@15s 7@18s; now 21s, cutoff 11s.
	s.Equal(1, s.win.Expire(s.clock.Now()))
	s.Equal([]float64{5, 6, 7}, s.values())

	s.win.Observe(8)
	s.win.Observe(9)
	s.Equal([]float64{6, 7, 8, 9}, s.values())
}

func (s *WindowSuite) TestSummary() {
	s.win.Observe(4)
	s.clock.Advance(time.Second)
	s.win.Observe(-2)
	s.clock.Advance(time.Second)
	s.win.Observe(7)

	sum := s.win.Current()
	s.Equal(Summary{
		Count:  3,
		Min:    -2,
		Max:    7,
		Mean:   3,
		Last:   7,
		Oldest: epoch,
		Newest: epoch.Add(2 * time.Second),
	}, sum)
}

func (s *WindowSuite) TestSummaryExpiresFirst() {
	s.win.Observe(100)
	s.clock.Advance(30 * time.Second)
	s.win.Observe(1)

	sum := s.win.Current()
	s.Equal(1, sum.Count)
	s.Equal(1.0, sum.Max)
	s.Equal(1, s.win.Len())
}

func (s *WindowSuite) TestSummaryEmpty() {
	s.Equal(Summary{}, s.win.Current())

	s.win.Observe(1)
	s.clock.Advance(time.Minute)
	s.Equal(Summary{}, s.win.Current(), "fully expired window summarizes as empty")
}

func (s *WindowSuite) TestReset() {
	s.win.Observe(1)
	s.win.Observe(2)
	s.win.Reset()

	s.Zero(s.win.Len())
	s.Equal(4, s.win.Cap())
	s.win.Observe(3)
	s.Equal([]float64{3}, s.values())
}

func TestWindowSuite(t *testing.T) {
	suite.Run(t, new(WindowSuite))
}

func TestNewWindowErrors(t *testing.T) {
	_, err := NewWindow(0, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidCapacity)

	_, err = NewWindow(4, -time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestWindowNoMaxAge(t *testing.T) {
	w, err := NewWindow(2, 0)
	require.NoError(t, err)

	w.Add(epoch, 1)
	assert.Zero(t, w.Expire(epoch.Add(24*time.Hour)))
	assert.Equal(t, 1, w.Summary(epoch.Add(24*time.Hour)).Count)
}

func TestWindowLogsExpiry(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w, err := NewWindow(2, time.Second, WithLogger(logger))
	require.NoError(t, err)

	w.Add(epoch, 1)
	w.Expire(epoch.Add(time.Minute))

	assert.Contains(t, logs.String(), "Expired samples")
	assert.Contains(t, logs.String(), "component=window")
	assert.Contains(t, logs.String(), "count=1")
}

func TestSummaryLogValue(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	logger.Info("Window", "summary", Summary{
		Count:  2,
		Min:    1,
		Max:    3,
		Mean:   2,
		Last:   3,
		Oldest: epoch,
		Newest: epoch.Add(time.Second),
	})
	assert.Contains(t, logs.String(), "summary.count=2")
	assert.Contains(t, logs.String(), "summary.mean=2")
	assert.Contains(t, logs.String(), "summary.span=1s")

	logs.Reset()
	logger.Info("Window", "summary", Summary{})
	assert.Contains(t, logs.String(), "summary.count=0")
	assert.NotContains(t, logs.String(), "summary.min")
}

func TestWindowConcurrent(t *testing.T) {
	w, err := NewWindow(64, time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				w.Observe(float64(j))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = w.Current()
				_ = w.Values()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, w.Len())
	evicted, _ := w.Counters()
	assert.Equal(t, uint64(4*500-64), evicted)
}
