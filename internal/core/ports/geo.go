package ports

import (
	"context"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// GeoResolver locates a source address. Lookups are best effort: callers
// treat any error as "no location available" and carry on.
type GeoResolver interface {
	// Lookup resolves an IP to a location, consulting the in-memory cache
	// before any remote provider.
	Lookup(ctx context.Context, ip string) (*domain.GeoInfo, error)
}
