package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/util"
	"github.com/ppiankov/clearview/internal/worker"
)

const checkMaxRetries = 3

// checkSleepFunc is the sleep between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// Result is the reachability of one cited source
type Result struct {
	URL          string     `json:"url"`
	Title        string     `json:"title,omitempty"`
	Authority    Authority  `json:"authority"`
	StatusCode   int        `json:"status_code,omitempty"`
	Reachable    bool       `json:"reachable"`
	Dead         bool       `json:"dead"`
	Blocked      bool       `json:"blocked_by_robots,omitempty"`
	RedirectURL  string     `json:"redirect_url,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Stale        bool       `json:"stale,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Checker checks cited sources concurrently
type Checker struct {
	httpClient *http.Client
	maxWorkers int
	userAgent  string
	robots     *RobotsChecker
	authority  *AuthorityClassifier
	limiter    *worker.Limiter
}

// NewChecker creates a checker from the link-check and API settings
func NewChecker(cfg model.LinkCheckConfig, apiCfg model.APIConfig, limiter *worker.Limiter) *Checker {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(apiCfg.HTTPProxy, apiCfg.HTTPSProxy, apiCfg.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	c := &Checker{
		httpClient: client,
		maxWorkers: workers,
		userAgent:  apiCfg.UserAgent,
		authority:  NewAuthorityClassifier(cfg.PrimaryDomains, cfg.SecondaryDomains),
		limiter:    limiter,
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsChecker(apiCfg.UserAgent, client)
	}
	return c
}

// Check checks every distinct URL cited by the sources. Results follow the
// order of first appearance.
func (c *Checker) Check(ctx context.Context, sources []model.SourceRef) []Result {
	var targets []model.SourceRef
	seen := make(map[string]bool)
	for _, s := range sources {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		targets = append(targets, s)
	}

	results := make([]Result, len(targets))
	if len(targets) == 0 {
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, src := range targets {
		wg.Add(1)
		go func(idx int, s model.SourceRef) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Result{URL: s.URL, Title: s.Title, Authority: c.authority.Classify(s.URL), Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, s)
		}(i, src)
	}

	wg.Wait()
	return results
}

func (c *Checker) checkWithRetry(ctx context.Context, src model.SourceRef) Result {
	var result Result
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		result = c.checkOne(ctx, src)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

func (c *Checker) checkOne(ctx context.Context, src model.SourceRef) Result {
	result := Result{URL: src.URL, Title: src.Title, Authority: c.authority.Classify(src.URL)}

	u, err := url.Parse(src.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.Error = "not an http(s) URL"
		result.Dead = true
		return result
	}

	if c.robots != nil {
		allowed, delay, err := c.robots.CanFetch(ctx, src.URL)
		if err == nil && !allowed {
			result.Blocked = true
			result.Error = "disallowed by robots.txt"
			return result
		}
		if delay > 0 && c.limiter != nil {
			c.limiter.SetHostRate(u.Host, 1/delay.Seconds(), 1)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, src.URL); err != nil {
			result.Error = fmt.Sprintf("rate limit: %v", err)
			return result
		}
	}

	resp, err := c.do(ctx, http.MethodHead, src.URL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, src.URL)
	}
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Dead = !errors.Is(err, context.Canceled)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Reachable = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != src.URL {
		result.RedirectURL = final
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = &t
			result.Stale = time.Since(t) > 3*365*24*time.Hour
		}
	}
	return result
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// isRetryable reports whether a result looks like a transient failure
func isRetryable(r Result) bool {
	if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
		return true
	}
	s := strings.ToLower(r.Error)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
