package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/config"
	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// Sentinel errors callers branch on.
var (
	// ErrDisabled means lookups are turned off in configuration.
	ErrDisabled = errors.New("geo: lookups disabled")
	// ErrUnknownIP means no provider could locate the address.
	ErrUnknownIP = errors.New("geo: no location available")
)

// Provider names accepted in configuration.
const (
	ProviderIPAPI    = "ipapi"
	ProviderIPAPICom = "ip-api"
	ProviderIPInfo   = "ipinfo"
)

const (
	queryTimeout = 10 * time.Second
	// rateLimitDelay paces primary-provider calls; the free tiers are strict.
	rateLimitDelay = time.Second
)

// privatePrefixes covers loopback, RFC1918 and link-local space.
var privatePrefixes = []string{
	"127.", "192.168.", "10.",
	"172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.",
	"172.22.", "172.23.", "172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"169.254.",
}

// Service resolves source addresses against free geolocation providers with
// fallback, caching every answer in memory for the process lifetime.
type Service struct {
	enabled  bool
	provider string
	apiKey   string
	client   *http.Client
	sleep    func(time.Duration)

	mu    sync.RWMutex
	cache map[string]*domain.GeoInfo

	// Endpoint bases, swappable in tests.
	ipapiBase  string
	ipAPIBase  string
	ipinfoBase string
}

// NewService builds the resolver from configuration. A nil client gets the
// default with the provider timeout applied.
func NewService(cfg config.GeolocationConfig, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: queryTimeout}
	}
	return &Service{
		enabled:    cfg.Enabled,
		provider:   cfg.APIProvider,
		apiKey:     cfg.APIKey,
		client:     client,
		sleep:      time.Sleep,
		cache:      make(map[string]*domain.GeoInfo),
		ipapiBase:  "https://ipapi.co",
		ipAPIBase:  "http://ip-api.com",
		ipinfoBase: "https://ipinfo.io",
	}
}

// Lookup resolves an IP to a location. Private ranges get a synthetic record
// without any remote call; provider failures fall through the chain.
func (s *Service) Lookup(ctx context.Context, ip string) (*domain.GeoInfo, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}

	ip = strings.TrimSpace(ip)
	if ip == "" || ip == "N/A" || strings.EqualFold(ip, "nan") {
		return nil, ErrUnknownIP
	}

	if cached, ok := s.cached(ip); ok {
		return cached, nil
	}

	if isPrivateIP(ip) {
		info := domain.LocalGeoInfo()
		s.store(ip, info)
		return info, nil
	}

	for _, prov := range s.chain() {
		info, err := s.query(ctx, prov, ip)
		if err != nil {
			slog.Debug("geolocation provider failed", "provider", prov, "ip", ip, "error", err)
			continue
		}
		s.store(ip, info)
		// Pace only real calls to the primary provider; fallbacks already
		// cost a failed round trip.
		if prov == s.provider {
			s.sleep(rateLimitDelay)
		}
		return info, nil
	}

	return nil, ErrUnknownIP
}

// chain returns the providers to try: the configured one first, then the
// free fallbacks that differ from it.
func (s *Service) chain() []string {
	providers := []string{s.provider}
	if s.provider != ProviderIPAPICom {
		providers = append(providers, ProviderIPAPICom)
	}
	if s.provider != ProviderIPInfo {
		providers = append(providers, ProviderIPInfo)
	}
	return providers
}

func (s *Service) query(ctx context.Context, provider, ip string) (*domain.GeoInfo, error) {
	switch provider {
	case ProviderIPAPI:
		return s.queryIPAPI(ctx, ip)
	case ProviderIPAPICom:
		return s.queryIPAPICom(ctx, ip)
	case ProviderIPInfo:
		return s.queryIPInfo(ctx, ip)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// queryIPAPI queries ipapi.co (free tier: 1000 requests/day).
func (s *Service) queryIPAPI(ctx context.Context, ip string) (*domain.GeoInfo, error) {
	url := fmt.Sprintf("%s/%s/json/", s.ipapiBase, ip)
	if s.apiKey != "" {
		url += "?key=" + s.apiKey
	}

	var body struct {
		Error       bool     `json:"error"`
		Reason      string   `json:"reason"`
		CountryName string   `json:"country_name"`
		CountryCode string   `json:"country_code"`
		City        string   `json:"city"`
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		Org         string   `json:"org"`
	}
	if err := s.getJSON(ctx, url, nil, &body); err != nil {
		return nil, err
	}
	if body.Error {
		return nil, fmt.Errorf("ipapi.co error: %s", body.Reason)
	}

	return &domain.GeoInfo{
		Country:     orUnknown(body.CountryName),
		CountryCode: body.CountryCode,
		City:        orUnknown(body.City),
		Lat:         body.Latitude,
		Lon:         body.Longitude,
		ISP:         body.Org,
		Org:         body.Org,
	}, nil
}

// queryIPAPICom queries ip-api.com (free tier: 45 requests/minute).
func (s *Service) queryIPAPICom(ctx context.Context, ip string) (*domain.GeoInfo, error) {
	url := fmt.Sprintf("%s/json/%s?fields=status,message,country,countryCode,city,lat,lon,isp,org", s.ipAPIBase, ip)

	var body struct {
		Status      string   `json:"status"`
		Message     string   `json:"message"`
		Country     string   `json:"country"`
		CountryCode string   `json:"countryCode"`
		City        string   `json:"city"`
		Lat         *float64 `json:"lat"`
		Lon         *float64 `json:"lon"`
		ISP         string   `json:"isp"`
		Org         string   `json:"org"`
	}
	if err := s.getJSON(ctx, url, nil, &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("ip-api.com error: %s", body.Message)
	}

	return &domain.GeoInfo{
		Country:     orUnknown(body.Country),
		CountryCode: body.CountryCode,
		City:        orUnknown(body.City),
		Lat:         body.Lat,
		Lon:         body.Lon,
		ISP:         body.ISP,
		Org:         body.Org,
	}, nil
}

// queryIPInfo queries ipinfo.io (free tier: 50k requests/month).
func (s *Service) queryIPInfo(ctx context.Context, ip string) (*domain.GeoInfo, error) {
	url := fmt.Sprintf("%s/%s/json", s.ipinfoBase, ip)
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}

	var body struct {
		Country string `json:"country"`
		City    string `json:"city"`
		Loc     string `json:"loc"`
		Org     string `json:"org"`
	}
	if err := s.getJSON(ctx, url, headers, &body); err != nil {
		return nil, err
	}

	var lat, lon *float64
	if parts := strings.Split(body.Loc, ","); len(parts) >= 2 {
		if v, err := strconv.ParseFloat(parts[0], 64); err == nil {
			lat = &v
		}
		if v, err := strconv.ParseFloat(parts[1], 64); err == nil {
			lon = &v
		}
	}

	// ipinfo has no separate country name; the ISO code stands in for both.
	return &domain.GeoInfo{
		Country:     orUnknown(body.Country),
		CountryCode: body.Country,
		City:        orUnknown(body.City),
		Lat:         lat,
		Lon:         lon,
		ISP:         body.Org,
		Org:         body.Org,
	}, nil
}

func (s *Service) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Service) cached(ip string) (*domain.GeoInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.cache[ip]
	return info, ok
}

func (s *Service) store(ip string, info *domain.GeoInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[ip] = info
}

func isPrivateIP(ip string) bool {
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Ensure interface compliance
var _ ports.GeoResolver = (*Service)(nil)
