package fx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"golang.org/x/sync/singleflight"
)

type RateSource interface {
	Fetch(ctx context.Context, base domain.Currency) (Snapshot, error)
	Name() string
}

type SnapshotCache interface {
	Load(ctx context.Context) (*Snapshot, error)
	Store(ctx context.Context, snap Snapshot) error
}

// Refresher keeps a Table current. Concurrent Refresh calls share one fetch,
// and a failed fetch leaves the previous snapshot in place.
type Refresher struct {
	table    *Table
	source   RateSource
	cache    SnapshotCache
	base     domain.Currency
	interval time.Duration
	logger   *slog.Logger
	group    singleflight.Group
}

const defaultRefreshInterval = time.Hour

// NewRefresher wires a refresher. cache may be nil. A non-positive interval
// falls back to hourly.
func NewRefresher(table *Table, source RateSource, cache SnapshotCache, base domain.Currency, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{
		table:    table,
		source:   source,
		cache:    cache,
		base:     base,
		interval: interval,
		logger:   logger,
	}
}

// Warm loads the cached snapshot, if any, into the table.
func (r *Refresher) Warm(ctx context.Context) {
	if r.cache == nil {
		return
	}
	snap, err := r.cache.Load(ctx)
	if err != nil {
		r.logger.Warn("rate cache unavailable", "error", err)
		return
	}
	if snap == nil {
		return
	}
	if err := r.table.Swap(*snap); err != nil {
		r.logger.Warn("discarding cached rate snapshot", "error", err)
		return
	}
	r.logger.Info("rates warmed from cache", "updated_at", snap.UpdatedAt, "currencies", len(snap.Rates))
}

func (r *Refresher) Refresh(ctx context.Context) error {
	_, err, shared := r.group.Do(string(r.base), func() (any, error) {
		return nil, r.refresh(ctx)
	})
	if shared {
		r.logger.Debug("rate refresh shared with in-flight call")
	}
	return err
}

func (r *Refresher) refresh(ctx context.Context) error {
	snap, err := r.source.Fetch(ctx, r.base)
	if err != nil {
		return fmt.Errorf("Refresh: %w", err)
	}
	if err := r.table.Swap(snap); err != nil {
		return fmt.Errorf("Refresh: %w", err)
	}

	r.logger.Info("rates refreshed",
		"source", r.source.Name(),
		"base", snap.Base,
		"currencies", len(snap.Rates),
		"updated_at", snap.UpdatedAt,
	)

	if r.cache != nil {
		if err := r.cache.Store(ctx, *r.table.Snapshot()); err != nil {
			r.logger.Warn("failed to cache rate snapshot", "error", err)
		}
	}
	return nil
}

// Start refreshes once, then on every interval until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("rate refresher started", "interval", r.interval, "source", r.source.Name())
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rate refresher stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("rate refresh failed, keeping previous table",
			"error", err,
			"updated_at", r.table.Snapshot().UpdatedAt,
		)
	}
}
