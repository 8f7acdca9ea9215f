package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"
)

// Status distinguishes how a Result was produced so "geolocation
// unavailable" is a representable state rather than an implicit empty
// value.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusCached   Status = "cached"
	StatusDegraded Status = "degraded"
)

// Result is what the ingress pipeline records. Degraded results carry nil
// country and city.
type Result struct {
	Country *string
	City    *string
	Status  Status
}

const (
	defaultProviderURL = "http://ip-api.com"
	defaultTimeout     = 5 * time.Second
	defaultTTL         = 24 * time.Hour
	maxResponseBytes   = 1 << 20
)

// Resolver maps an address to country/city. It consults the cache first,
// then an optional local MaxMind database, then the HTTP provider. Resolve
// never fails; every miss is answered, worst case with nils, and the
// outcome is cached either way.
type Resolver struct {
	cache       Cache
	client      *http.Client
	providerURL string
	ttl         func() time.Duration
	local       *geoip2.Reader
	group       singleflight.Group
}

type ResolverOption func(*Resolver)

func NewResolver(cache Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:       cache,
		client:      &http.Client{Timeout: defaultTimeout},
		providerURL: defaultProviderURL,
		ttl:         func() time.Duration { return defaultTTL },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func WithProviderURL(url string) ResolverOption {
	return func(r *Resolver) {
		if url != "" {
			r.providerURL = strings.TrimSuffix(url, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.client.Timeout = timeout
		}
	}
}

func WithTTL(ttl func() time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl != nil {
			r.ttl = ttl
		}
	}
}

// WithLocalDatabase opens a MaxMind City database and prefers it over the
// HTTP provider. A missing or unreadable file is logged and skipped.
func WithLocalDatabase(path string) ResolverOption {
	return func(r *Resolver) {
		if path == "" {
			return
		}
		reader, err := geoip2.Open(path)
		if err != nil {
			log.Warn("geo: local database unavailable, falling back to provider", "path", path, "error", err)
			return
		}
		r.local = reader
	}
}

// Close releases the local database reader if one was opened.
func (r *Resolver) Close() error {
	if r.local != nil {
		return r.local.Close()
	}
	return nil
}

// Resolve returns the geolocation for address. Concurrent misses for the
// same address collapse into one upstream lookup.
func (r *Resolver) Resolve(ctx context.Context, address string) Result {
	if address == "" {
		return Result{Status: StatusDegraded}
	}

	if entry, ok, err := r.cache.Get(ctx, address); err == nil && ok {
		return Result{Country: entry.Country, City: entry.City, Status: StatusCached}
	} else if err != nil {
		log.Warn("geo: cache read failed", "address", address, "error", err)
	}

	raw, _, _ := r.group.Do(address, func() (any, error) {
		return r.lookupAndStore(ctx, address), nil
	})

	return raw.(Result)
}

func (r *Resolver) lookupAndStore(ctx context.Context, address string) Result {
	entry, ok := r.lookupLocal(address)
	if !ok {
		entry, ok = r.lookupProvider(ctx, address)
	}

	status := StatusResolved
	if !ok {
		status = StatusDegraded
		entry = Entry{}
	}

	// Cache degraded outcomes too: one retry per TTL, not one per request.
	if err := r.cache.Set(ctx, address, entry, r.ttl()); err != nil {
		log.Warn("geo: cache write failed", "address", address, "error", err)
	}

	return Result{Country: entry.Country, City: entry.City, Status: status}
}

func (r *Resolver) lookupLocal(address string) (Entry, bool) {
	if r.local == nil {
		return Entry{}, false
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return Entry{}, false
	}

	record, err := r.local.City(ip)
	if err != nil {
		return Entry{}, false
	}

	var entry Entry
	if name := record.Country.Names["en"]; name != "" {
		entry.Country = &name
	}
	if name := record.City.Names["en"]; name != "" {
		entry.City = &name
	}
	if entry.Country == nil && entry.City == nil {
		return Entry{}, false
	}
	return entry, true
}

type providerResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
}

func (r *Resolver) lookupProvider(ctx context.Context, address string) (Entry, bool) {
	url := fmt.Sprintf("%s/json/%s", r.providerURL, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Entry{}, false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Debug("geo: provider lookup failed", "address", address, "error", err)
		return Entry{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug("geo: provider returned non-success status", "address", address, "status", resp.StatusCode)
		return Entry{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Entry{}, false
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Entry{}, false
	}
	if parsed.Status != "" && parsed.Status != "success" {
		return Entry{}, false
	}

	var entry Entry
	if parsed.Country != "" {
		entry.Country = &parsed.Country
	}
	if parsed.City != "" {
		entry.City = &parsed.City
	}
	return entry, true
}
