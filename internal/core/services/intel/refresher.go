package intel

import (
	"context"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

// Refresher keeps the indicator store in sync with the configured OSINT
// feeds. One feed failing keeps that set at its previous value until the
// next tick; the other set still updates.
type Refresher struct {
	store  *Store
	source ports.IndicatorSource
	cache  ports.IndicatorCache
	every  time.Duration
}

// NewRefresher wires the store to its feed source and optional cache.
func NewRefresher(store *Store, source ports.IndicatorSource, cache ports.IndicatorCache, every time.Duration) *Refresher {
	return &Refresher{
		store:  store,
		source: source,
		cache:  cache,
		every:  every,
	}
}

// Prime loads the last good sets from the cache so a restart before the
// first successful fetch still recognizes known indicators.
func (r *Refresher) Prime() {
	if r.cache == nil {
		return
	}

	r.primeKind(ports.IndicatorKindIP, r.store.ReplaceIPs)
	r.primeKind(ports.IndicatorKindDomain, r.store.ReplaceDomains)

	ips, domains := r.store.Counts()
	slog.Info("osint store primed from cache", "ips", ips, "domains", domains)
}

func (r *Refresher) primeKind(kind string, replace func([]string)) {
	values, err := r.cache.Load(kind)
	if err != nil {
		slog.Warn("osint cache load failed", "kind", kind, "error", err)
		return
	}
	if len(values) == 0 {
		return
	}
	replace(values)
	telemetry.IndicatorCount.WithLabelValues(kind).Set(float64(len(values)))
}

// Run fetches both feeds immediately, then on every tick until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	r.refreshKind(ctx, ports.IndicatorKindIP, r.source.FetchIPs, r.store.ReplaceIPs)
	r.refreshKind(ctx, ports.IndicatorKindDomain, r.source.FetchDomains, r.store.ReplaceDomains)
}

func (r *Refresher) refreshKind(ctx context.Context, kind string, fetch func(context.Context) ([]string, error), replace func([]string)) {
	values, err := fetch(ctx)
	if err != nil {
		slog.Warn("osint feed refresh failed, keeping previous set", "kind", kind, "error", err)
		return
	}

	replace(values)
	telemetry.IndicatorCount.WithLabelValues(kind).Set(float64(len(values)))

	if r.cache != nil {
		if err := r.cache.Save(kind, values); err != nil {
			slog.Warn("osint cache save failed", "kind", kind, "error", err)
		}
	}

	slog.Info("osint indicators refreshed", "kind", kind, "count", len(values))
}
