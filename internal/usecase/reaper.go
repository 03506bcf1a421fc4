package usecase

import (
	"context"
	"log/slog"
	"time"
)

type evictor interface {
	EvictExpired() []*Event
}

// Reaper - periodically discards rooms that outlived the expiry. Disconnects are the
// main cleanup path; this only catches rooms that somebody keeps a socket open to.
type Reaper struct {
	logger   *slog.Logger
	rooms    evictor
	interval time.Duration

	onEvict func(*Event)
}

func NewReaper(logger *slog.Logger, rooms evictor, interval time.Duration, onEvict func(*Event)) *Reaper {
	if onEvict == nil {
		onEvict = func(*Event) {}
	}

	return &Reaper{
		logger:   logger.With("component", "reaper"),
		rooms:    rooms,
		interval: interval,
		onEvict:  onEvict,
	}
}

// Run - sweeps every interval until ctx is done.
func (that *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	that.logger.Info("reaper started", "interval", that.interval.String())

	for {
		select {
		case <-ctx.Done():
			that.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			that.Sweep()
		}
	}
}

// Sweep - one pass; returns the number of rooms removed.
func (that *Reaper) Sweep() int {
	events := that.rooms.EvictExpired()
	for _, event := range events {
		that.onEvict(event)
	}

	if len(events) > 0 {
		that.logger.Info("expired rooms removed", "count", len(events))
	}

	return len(events)
}
