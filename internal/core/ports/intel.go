package ports

import "context"

// Indicator kinds stored in the OSINT cache.
const (
	IndicatorKindIP     = "ip"
	IndicatorKindDomain = "domain"
)

// IndicatorLookup answers membership queries against the current OSINT sets.
// Implementations must be safe for concurrent readers.
type IndicatorLookup interface {
	// ContainsIP reports whether the address is blocklisted.
	ContainsIP(ip string) bool

	// ContainsDomain reports whether the (lowercased) host is blocklisted.
	ContainsDomain(domain string) bool
}

// IndicatorSource fetches fresh blocklists from the configured feeds.
type IndicatorSource interface {
	// FetchIPs downloads and parses the IP blocklist feed.
	FetchIPs(ctx context.Context) ([]string, error)

	// FetchDomains downloads and parses the domain blocklist feed.
	FetchDomains(ctx context.Context) ([]string, error)
}

// IndicatorCache persists the last good blocklists across restarts.
type IndicatorCache interface {
	// Save replaces all cached values of the given kind.
	Save(kind string, values []string) error

	// Load returns the cached values of the given kind.
	Load(kind string) ([]string, error)

	// Close releases the cache handle.
	Close() error
}
