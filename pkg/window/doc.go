// Package window keeps a bounded, time-limited window of numeric samples and
// summarizes it.
//
// A Window holds at most its capacity of samples in a ring.Ring: adding to a
// full window evicts the oldest sample. Samples older than the configured
// maximum age are removed in place by Expire, which keeps the order of the
// survivors, so late or out-of-order samples are handled without resorting.
//
//	w, err := window.NewWindow(256, time.Minute)
//	if err != nil {
//		return err
//	}
//	w.Observe(21.5)
//	s := w.Current() // expires, then summarizes
//	slog.Info("Window", "summary", s)
//
// Summary implements slog.LogValuer so it can be logged directly.
package window
