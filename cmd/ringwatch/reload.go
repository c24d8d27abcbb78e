package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/c360/ringbuff/config"
	"github.com/c360/ringbuff/errors"
)

// watchReload reloads the configuration on every SIGHUP until ctx is done.
func (p *pipeline) watchReload(ctx context.Context, loader *config.Loader) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			p.reload(loader)
		}
	}
}

// reload applies the settings that can change at runtime: the report interval
// and the sampler pacing. Buffer, window and source settings are fixed at
// startup and only produce a warning when they differ.
func (p *pipeline) reload(loader *config.Loader) bool {
	prev := p.cfg.Get()
	next, err := loader.Load()
	if err == nil {
		err = p.cfg.Update(next)
	}
	if err != nil {
		p.metrics.RecordError("config", errors.Classify(err).String())
		p.logger.Warn("Configuration reload failed, keeping current settings", "error", err)
		return false
	}

	if prev.Buffer != next.Buffer || prev.Window != next.Window || prev.Sampler.Source != next.Sampler.Source {
		p.logger.Warn("Buffer, window and source changes take effect after restart")
	}

	p.limiter.SetLimit(rate.Limit(next.Sampler.Rate))
	p.limiter.SetBurst(next.Sampler.Burst)

	p.logger.Info("Configuration reloaded",
		"report_interval", next.Report.Interval,
		"sampler_rate", next.Sampler.Rate,
		"sampler_burst", next.Sampler.Burst)
	return true
}
