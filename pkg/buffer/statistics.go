package buffer

import (
	"sync/atomic"
	"time"
)

// Statistics counts what a buffer did with the items offered to it.
//
// Every accepted write ends up in exactly one of: read, evicted, removed,
// cleared, or still buffered, so at any quiescent point
//
//	Writes() == Reads() + Evicted() + Removed() + Cleared() + CurrentSize()
//
// Rejected items were never accepted and are not part of Writes.
type Statistics struct {
	writes   atomic.Int64 // accepted into the ring
	reads    atomic.Int64
	peeks    atomic.Int64
	evicted  atomic.Int64 // overwritten by DropOldest
	rejected atomic.Int64 // refused by DropNewest
	removed  atomic.Int64 // filtered out by Retain
	cleared  atomic.Int64 // discarded by Clear
	blocked  atomic.Int64 // Block writes that had to wait for room

	size    atomic.Int64
	maxSize atomic.Int64
	started atomic.Int64 // unix nanos
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	s := &Statistics{}
	s.started.Store(time.Now().UnixNano())
	return s
}

func (s *Statistics) recordWrite(size int)      { s.writes.Add(1); s.setSize(size) }
func (s *Statistics) recordRead(n, size int)    { s.reads.Add(int64(n)); s.setSize(size) }
func (s *Statistics) recordPeek()               { s.peeks.Add(1) }
func (s *Statistics) recordEvicted()            { s.evicted.Add(1) }
func (s *Statistics) recordRejected()           { s.rejected.Add(1) }
func (s *Statistics) recordRemoved(n, size int) { s.removed.Add(int64(n)); s.setSize(size) }
func (s *Statistics) recordCleared(n int)       { s.cleared.Add(int64(n)); s.setSize(0) }
func (s *Statistics) recordBlocked()            { s.blocked.Add(1) }

func (s *Statistics) setSize(size int) {
	n := int64(size)
	s.size.Store(n)
	for {
		peak := s.maxSize.Load()
		if n <= peak || s.maxSize.CompareAndSwap(peak, n) {
			return
		}
	}
}

// Writes returns the number of items accepted into the buffer.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the number of items handed out by Read and ReadBatch.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Peeks returns the number of successful Peek calls.
func (s *Statistics) Peeks() int64 { return s.peeks.Load() }

// Evicted returns the number of buffered items overwritten under DropOldest.
func (s *Statistics) Evicted() int64 { return s.evicted.Load() }

// Rejected returns the number of writes refused under DropNewest.
func (s *Statistics) Rejected() int64 { return s.rejected.Load() }

// Removed returns the number of items filtered out by Retain.
func (s *Statistics) Removed() int64 { return s.removed.Load() }

// Cleared returns the number of items discarded by Clear.
func (s *Statistics) Cleared() int64 { return s.cleared.Load() }

// Blocked returns the number of Block-policy writes that waited for room.
func (s *Statistics) Blocked() int64 { return s.blocked.Load() }

// Drops returns the number of items passed to the drop callback:
// evicted, rejected and cleared items.
func (s *Statistics) Drops() int64 {
	return s.Evicted() + s.Rejected() + s.Cleared()
}

// Offered returns the number of items passed to Write, accepted or not.
func (s *Statistics) Offered() int64 {
	return s.Writes() + s.Rejected()
}

// LossRate is the share of offered items lost to overflow (0.0 to 1.0).
// Retain and Clear are deliberate and do not count.
func (s *Statistics) LossRate() float64 {
	offered := s.Offered()
	if offered == 0 {
		return 0.0
	}
	return float64(s.Evicted()+s.Rejected()) / float64(offered)
}

// CurrentSize returns the number of buffered items after the last mutation.
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// MaxSize returns the largest number of items the buffer has held.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// Uptime returns the time since creation or the last Reset.
func (s *Statistics) Uptime() time.Duration {
	return time.Since(time.Unix(0, s.started.Load()))
}

// WriteRate returns accepted writes per second over the uptime.
func (s *Statistics) WriteRate() float64 {
	elapsed := s.Uptime().Seconds()
	if elapsed <= 0 {
		return 0.0
	}
	return float64(s.Writes()) / elapsed
}

// Reset zeroes every counter. The current size is kept so the accounting
// identity holds again once the buffered items are read.
func (s *Statistics) Reset() {
	for _, c := range []*atomic.Int64{
		&s.writes, &s.reads, &s.peeks, &s.evicted,
		&s.rejected, &s.removed, &s.cleared, &s.blocked,
	} {
		c.Store(0)
	}
	s.maxSize.Store(s.size.Load())
	s.started.Store(time.Now().UnixNano())
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Writes      int64         `json:"writes"`
	Reads       int64         `json:"reads"`
	Peeks       int64         `json:"peeks"`
	Evicted     int64         `json:"evicted"`
	Rejected    int64         `json:"rejected"`
	Removed     int64         `json:"removed"`
	Cleared     int64         `json:"cleared"`
	Blocked     int64         `json:"blocked"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	LossRate    float64       `json:"loss_rate"`
	WriteRate   float64       `json:"write_rate"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:      s.Writes(),
		Reads:       s.Reads(),
		Peeks:       s.Peeks(),
		Evicted:     s.Evicted(),
		Rejected:    s.Rejected(),
		Removed:     s.Removed(),
		Cleared:     s.Cleared(),
		Blocked:     s.Blocked(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		LossRate:    s.LossRate(),
		WriteRate:   s.WriteRate(),
		Uptime:      s.Uptime(),
	}
}
