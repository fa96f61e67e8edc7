package osint

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

const fetchTimeout = 10 * time.Second

// FeedFetcher downloads the abuse.ch blocklist feeds. Lines are kept
// verbatim; blank lines and # comments are skipped.
type FeedFetcher struct {
	ipFeedURL     string
	domainFeedURL string
	client        *http.Client
}

// NewFeedFetcher builds a fetcher for the two configured feed URLs.
func NewFeedFetcher(ipFeedURL, domainFeedURL string) *FeedFetcher {
	return &FeedFetcher{
		ipFeedURL:     ipFeedURL,
		domainFeedURL: domainFeedURL,
		client:        &http.Client{Timeout: fetchTimeout},
	}
}

// FetchIPs downloads and parses the IP blocklist feed.
func (f *FeedFetcher) FetchIPs(ctx context.Context) ([]string, error) {
	return f.fetch(ctx, f.ipFeedURL)
}

// FetchDomains downloads and parses the domain blocklist feed.
func (f *FeedFetcher) FetchDomains(ctx context.Context) ([]string, error) {
	return f.fetch(ctx, f.domainFeedURL)
}

func (f *FeedFetcher) fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: unexpected status %d", url, resp.StatusCode)
	}

	var values []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		values = append(values, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feed %s: %w", url, err)
	}

	return values, nil
}

// Ensure interface compliance
var _ ports.IndicatorSource = (*FeedFetcher)(nil)
