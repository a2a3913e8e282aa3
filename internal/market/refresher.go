package market

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"trade-journal/config"
	"trade-journal/internal/cache"
	"trade-journal/internal/events"
)

// Refresher periodically refreshes the aggregate market snapshot, caches
// it in Redis and publishes it on the event bus for websocket delivery.
type Refresher struct {
	client *Client
	cache  *cache.CacheService
	bus    *events.EventBus
	cron   *cron.Cron
	logger zerolog.Logger

	interval time.Duration
	cacheTTL time.Duration
}

// NewRefresher creates a snapshot refresher. The cache may be nil, in which
// case snapshots are only published on the bus.
func NewRefresher(client *Client, cs *cache.CacheService, bus *events.EventBus, cfg config.MarketConfig, logger zerolog.Logger) *Refresher {
	interval := time.Duration(cfg.RefreshInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if ttl <= 0 {
		ttl = cache.DefaultSnapshotTTL
	}

	return &Refresher{
		client:   client,
		cache:    cs,
		bus:      bus,
		cron:     cron.New(),
		logger:   logger,
		interval: interval,
		cacheTTL: ttl,
	}
}

// Start performs an immediate refresh and then schedules periodic ones.
func (r *Refresher) Start() error {
	r.Refresh(context.Background())

	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.interval)
		defer cancel()
		r.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule market refresh: %w", err)
	}

	r.cron.Start()
	r.logger.Info().Dur("interval", r.interval).Msg("market refresher started")
	return nil
}

// Stop halts the refresh schedule and waits for a running job to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("market refresher stopped")
}

// Refresh fetches a fresh snapshot, caches it and publishes it.
func (r *Refresher) Refresh(ctx context.Context) *Snapshot {
	snap := r.client.FetchAll(ctx)

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, cache.MarketSnapshotKey(), snap, r.cacheTTL); err != nil {
			r.logger.Debug().Err(err).Msg("market snapshot not cached")
		}
	}

	if r.bus != nil {
		r.bus.PublishMarketUpdated(snap)
	}

	return snap
}

// Snapshot returns the cached snapshot when fresh, fetching a new one on a
// cache miss.
func (r *Refresher) Snapshot(ctx context.Context) *Snapshot {
	if r.cache != nil {
		var snap Snapshot
		if err := r.cache.GetJSON(ctx, cache.MarketSnapshotKey(), &snap); err == nil {
			return &snap
		}
	}
	return r.Refresh(ctx)
}
