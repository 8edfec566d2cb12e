package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// robotsTTL bounds how long a host's robots.txt is trusted
const robotsTTL = time.Hour

// RobotsChecker checks robots.txt compliance, caching one document per host
type RobotsChecker struct {
	cache      *gocache.Cache
	httpClient *http.Client
	userAgent  string
}

// NewRobotsChecker creates a robots.txt checker
func NewRobotsChecker(userAgent string, client *http.Client) *RobotsChecker {
	return &RobotsChecker{
		cache:      gocache.New(robotsTTL, 2*robotsTTL),
		httpClient: client,
		userAgent:  userAgent,
	}
}

// CanFetch reports whether rawURL may be fetched and the host's crawl delay.
// An unreachable robots.txt allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, 0, fmt.Errorf("parse URL: no host in %q", rawURL)
	}

	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	agent := NormalizeUserAgent(r.userAgent)
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	var delay time.Duration
	if group := data.FindGroup(agent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, agent), delay, nil
}

func (r *RobotsChecker) robotsData(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*robotstxt.RobotsData), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.cache.SetDefault(key, data)
	return data, nil
}

// NormalizeUserAgent reduces a user agent to its product token ("ClearView-CLI/0.1 (...)" -> "ClearView-CLI")
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
