package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/ringbuff/config"
	"github.com/c360/ringbuff/errors"
	"github.com/c360/ringbuff/metric"
	"github.com/c360/ringbuff/pkg/buffer"
	"github.com/c360/ringbuff/pkg/window"
)

const (
	feedInterval = 50 * time.Millisecond
	feedBatch    = 256
)

// errSourceExhausted stops the pipeline once a finite source reaches EOF.
var errSourceExhausted = stderrors.New("sample source exhausted")

// pipeline moves samples from a source through a bounded buffer into the
// sliding window and reports window summaries.
//
//	sampler -> buffer.Buffer -> feeder -> window.Window <- reporter
type pipeline struct {
	cfg      *config.SafeConfig
	source   string
	input    io.Reader
	buf      buffer.Buffer[window.Sample]
	win      *window.Window
	limiter  *rate.Limiter
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics
	server   *metric.Server
	logger   *slog.Logger
	instance string

	finishOnce sync.Once
}

func newPipeline(cfg *config.Config, input io.Reader, logger *slog.Logger) (*pipeline, error) {
	instance := uuid.New().String()
	logger = logger.With("instance", instance)

	registry := metric.NewMetricsRegistry()

	buf, err := buffer.NewCircularBuffer[window.Sample](cfg.Buffer.Capacity,
		buffer.WithOverflowPolicy[window.Sample](cfg.Policy()),
		buffer.WithMetrics[window.Sample](registry, "samples"),
		buffer.WithLogger[window.Sample](logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create sample buffer: %w", err)
	}

	win, err := window.NewWindow(cfg.Window.Capacity, cfg.Window.MaxAge, window.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	p := &pipeline{
		cfg:      config.NewSafeConfig(cfg),
		source:   cfg.Sampler.Source,
		input:    input,
		buf:      buf,
		win:      win,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Sampler.Rate), cfg.Sampler.Burst),
		registry: registry,
		metrics:  registry.CoreMetrics(),
		logger:   logger,
		instance: instance,
	}
	if cfg.Metrics.Enabled {
		p.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	}

	p.metrics.RecordInfo(instance, cfg.Policy().String(), strconv.Itoa(cfg.Buffer.Capacity))
	return p, nil
}

// run blocks until ctx is cancelled, a finite source is exhausted, or a stage
// fails. Samples still buffered at that point are folded into the window and
// a final summary is logged.
func (p *pipeline) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.sample(gctx) })
	g.Go(func() error { return p.feed(gctx) })
	g.Go(func() error { return p.report(gctx) })
	if p.server != nil {
		g.Go(func() error { return p.server.Run(gctx) })
		p.logger.Info("Metrics server listening", "address", p.server.Address())
	}

	err := g.Wait()
	p.finish()

	// Cancellation by the caller is a clean stop.
	if err != nil && ctx.Err() == nil && !stderrors.Is(err, errSourceExhausted) {
		p.metrics.RecordError("pipeline", errors.Classify(err).String())
		return err
	}
	return nil
}

// finish folds whatever is still buffered into the window, logs the final
// summary and closes the buffer. Only the first call does anything.
func (p *pipeline) finish() {
	p.finishOnce.Do(func() {
		p.drain()
		p.logSummary("Final window summary")
		_ = p.buf.Close()
	})
}

func (p *pipeline) sample(ctx context.Context) error {
	switch p.source {
	case config.SourceStdin:
		return p.scan(ctx, p.input)
	default:
		return p.randomWalk(ctx)
	}
}

// randomWalk emits start, start±step, ... paced by the limiter.
func (p *pipeline) randomWalk(ctx context.Context) error {
	sampler := p.cfg.Get().Sampler
	value := sampler.Start

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.WrapTransient(err, "Sampler", "randomWalk", "rate limiter wait")
		}
		value += (rand.Float64()*2 - 1) * sampler.Step
		if err := p.push(ctx, window.Sample{At: time.Now(), Value: value}); err != nil {
			return err
		}
	}
}

// scan reads one number per line. Blank lines and lines starting with # are
// skipped; anything else that does not parse as a finite float is counted as
// rejected.
func (p *pipeline) scan(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		v, err := strconv.ParseFloat(line, 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = fmt.Errorf("non-finite value %q", line)
		}
		if err != nil {
			p.metrics.RecordRejected(p.source)
			p.logger.Warn("Rejected input line", "line", lineNo, "error", err)
			continue
		}

		if err := p.push(ctx, window.Sample{At: time.Now(), Value: v}); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.WrapTransient(err, "Sampler", "scan", "read input")
	}

	p.logger.Info("Input exhausted", "lines", lineNo)
	return errSourceExhausted
}

func (p *pipeline) push(ctx context.Context, s window.Sample) error {
	if err := p.buf.WriteWithContext(ctx, s); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("buffer sample: %w", err)
	}
	p.metrics.RecordSample(p.source)
	return nil
}

// feed moves buffered samples into the window on every tick.
func (p *pipeline) feed(ctx context.Context) error {
	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.drain()
		}
	}
}

func (p *pipeline) drain() {
	for {
		batch := p.buf.ReadBatch(feedBatch)
		if len(batch) == 0 {
			break
		}
		for _, s := range batch {
			p.win.Add(s.At, s.Value)
		}
	}
	expired := p.win.Expire(time.Now())
	p.metrics.RecordWindow(p.win.Len(), expired)
}

// report logs a summary every report interval. The interval is re-read after
// each report so a reload takes effect without a restart.
func (p *pipeline) report(ctx context.Context) error {
	timer := time.NewTimer(p.cfg.Get().Report.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			p.logSummary("Window summary")
			timer.Reset(p.cfg.Get().Report.Interval)
		}
	}
}

func (p *pipeline) logSummary(msg string) window.Summary {
	start := time.Now()
	s := p.win.Current()
	p.metrics.RecordSummary(s.Min, s.Max, s.Mean, s.Last, time.Since(start))

	stats := p.buf.Stats()
	p.logger.Info(msg,
		"summary", s,
		"buffered", p.buf.Size(),
		"written", stats.Writes(),
		"evicted", stats.Evicted(),
		"rejected", stats.Rejected(),
		"blocked", stats.Blocked())
	return s
}
