package intel

import (
	"sync"

	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// Store holds the OSINT indicator sets consulted on the packet hot path.
// Lookups are exact matches; replacement swaps a whole set at once, so a
// failed feed refresh never leaves a half-updated view.
type Store struct {
	mu      sync.RWMutex
	ips     map[string]struct{}
	domains map[string]struct{}
}

// NewStore creates an empty indicator store.
func NewStore() *Store {
	return &Store{
		ips:     make(map[string]struct{}),
		domains: make(map[string]struct{}),
	}
}

// ContainsIP reports whether ip is a listed indicator.
func (s *Store) ContainsIP(ip string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ips[ip]
	return ok
}

// ContainsDomain reports whether domain is a listed indicator. Callers
// normalize the host (lowercase, trimmed) before asking.
func (s *Store) ContainsDomain(domain string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.domains[domain]
	return ok
}

// ReplaceIPs swaps the IP set wholesale.
func (s *Store) ReplaceIPs(ips []string) {
	next := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		next[ip] = struct{}{}
	}

	s.mu.Lock()
	s.ips = next
	s.mu.Unlock()
}

// ReplaceDomains swaps the domain set wholesale.
func (s *Store) ReplaceDomains(domains []string) {
	next := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		next[d] = struct{}{}
	}

	s.mu.Lock()
	s.domains = next
	s.mu.Unlock()
}

// Counts returns the current set sizes.
func (s *Store) Counts() (ips, domains int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ips), len(s.domains)
}

// Ensure interface compliance
var _ ports.IndicatorLookup = (*Store)(nil)
