package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits outgoing requests per host
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host.
// A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// SetHostRate overrides the limit for one host (e.g. a crawl delay from robots.txt).
// host is the URL host including any port.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	if existing, ok := l.limiters[host]; ok {
		existing.SetLimit(rate.Limit(requestsPerSecond))
		existing.SetBurst(burst)
		return
	}
	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	return limiter
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in URL %q", rawURL)
	}
	return parsed.Host, nil
}
