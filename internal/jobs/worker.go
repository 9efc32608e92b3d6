package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ftv2g/ftv2g/internal/log"
)

// KeepAliveWorker keeps the upstream session warm by probing it on a
// fixed cadence and re-logging-in when it has gone stale.
type KeepAliveWorker struct {
	client  Client
	cadence time.Duration
	logger  zerolog.Logger
	busy    atomic.Bool
}

// NewKeepAliveWorker builds a keep-alive worker with the given cadence.
func NewKeepAliveWorker(client Client, cadence time.Duration) *KeepAliveWorker {
	return &KeepAliveWorker{
		client:  client,
		cadence: cadence,
		logger:  xlog.WithComponent("keepalive"),
	}
}

// Start runs the keep-alive loop. It blocks until ctx is canceled.
func (w *KeepAliveWorker) Start(ctx context.Context) {
	if w.cadence <= 0 {
		w.logger.Info().Str("event", "keepalive.disabled").Msg("keep-alive disabled")
		return
	}
	ticker := time.NewTicker(w.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tryRun(ctx)
		}
	}
}

func (w *KeepAliveWorker) tryRun(ctx context.Context) {
	if !w.busy.CompareAndSwap(false, true) {
		return // previous run still in flight
	}
	defer w.busy.Store(false)

	if err := w.client.KeepAlive(ctx); err != nil {
		w.logger.Warn().
			Err(err).
			Str("event", "keepalive.failed").
			Msg("keep-alive probe failed")
		return
	}
	w.logger.Debug().Str("event", "keepalive.ok").Msg("session alive")
}

// RefreshWorker periodically rewrites the on-disk playlist and guide
// artifacts. A cadence of zero disables it.
type RefreshWorker struct {
	client  Client
	cfg     Config
	cadence time.Duration
	logger  zerolog.Logger
	busy    atomic.Bool
}

// NewRefreshWorker builds a refresh worker with the given cadence.
func NewRefreshWorker(client Client, cfg Config, cadence time.Duration) *RefreshWorker {
	return &RefreshWorker{
		client:  client,
		cfg:     cfg,
		cadence: cadence,
		logger:  xlog.WithComponent("refresh"),
	}
}

// Start runs the refresh loop, with an immediate first run. It blocks
// until ctx is canceled.
func (w *RefreshWorker) Start(ctx context.Context) {
	if w.cadence <= 0 {
		w.logger.Info().Str("event", "refresh.disabled").Msg("artifact refresh disabled")
		return
	}
	ticker := time.NewTicker(w.cadence)
	defer ticker.Stop()

	w.tryRun(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tryRun(ctx)
		}
	}
}

func (w *RefreshWorker) tryRun(ctx context.Context) {
	if !w.busy.CompareAndSwap(false, true) {
		return
	}
	defer w.busy.Store(false)

	if _, err := Refresh(ctx, w.cfg, w.client); err != nil {
		w.logger.Error().
			Err(err).
			Str("event", "refresh.failed").
			Msg("artifact refresh failed")
	}
}
