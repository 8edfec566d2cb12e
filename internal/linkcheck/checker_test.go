package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/worker"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	checkSleepFunc = func(d time.Duration) {}
}

func newTestChecker(robots bool) *Checker {
	cfg := model.LinkCheckConfig{Timeout: 5 * time.Second, Workers: 4, RespectRobots: robots}
	return NewChecker(cfg, model.DefaultConfig().API, nil)
}

func TestChecker_Reachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD request, got %s", r.Method)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	results := newTestChecker(false).Check(context.Background(), []model.SourceRef{{Title: "T", URL: server.URL}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if !r.Reachable || r.Dead || r.StatusCode != http.StatusOK {
		t.Errorf("unexpected result %+v", r)
	}
	if r.LastModified == nil || !r.Stale {
		t.Errorf("expected old Last-Modified to mark the source stale: %+v", r)
	}
	if r.Title != "T" {
		t.Errorf("expected title to be carried, got %q", r.Title)
	}
	if r.Authority != AuthorityTertiary {
		t.Errorf("expected loopback source to be tertiary, got %q", r.Authority)
	}
}

func TestChecker_Dead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := newTestChecker(false).Check(context.Background(), []model.SourceRef{{URL: server.URL}})[0]
	if r.Reachable || !r.Dead {
		t.Errorf("expected dead link, got %+v", r)
	}
}

func TestChecker_HeadNotAllowedFallsBackToGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := newTestChecker(false).Check(context.Background(), []model.SourceRef{{URL: server.URL}})[0]
	if !r.Reachable {
		t.Errorf("expected GET fallback to succeed, got %+v", r)
	}
}

func TestChecker_Redirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusMovedPermanently)
	}))
	defer redirect.Close()

	r := newTestChecker(false).Check(context.Background(), []model.SourceRef{{URL: redirect.URL}})[0]
	if r.RedirectURL != final.URL {
		t.Errorf("expected redirect to %s, got %q", final.URL, r.RedirectURL)
	}
}

func TestChecker_DeduplicatesAndKeepsOrder(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sources := []model.SourceRef{
		{URL: server.URL + "/a"},
		{URL: ""},
		{URL: server.URL + "/b"},
		{URL: server.URL + "/a"},
	}
	results := newTestChecker(false).Check(context.Background(), sources)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != server.URL+"/a" || results[1].URL != server.URL+"/b" {
		t.Errorf("unexpected order: %s, %s", results[0].URL, results[1].URL)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestChecker_Empty(t *testing.T) {
	if got := newTestChecker(false).Check(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestChecker_NonHTTPURL(t *testing.T) {
	r := newTestChecker(false).Check(context.Background(), []model.SourceRef{{URL: "ftp://example.com/file"}})[0]
	if !r.Dead || r.Error == "" {
		t.Errorf("expected non-http URL to be rejected, got %+v", r)
	}
}

func TestChecker_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := newTestChecker(false).Check(context.Background(), []model.SourceRef{{URL: server.URL}})[0]
	if !r.Reachable {
		t.Errorf("expected success after retries, got %+v", r)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestChecker_NoRetryOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	newTestChecker(false).Check(context.Background(), []model.SourceRef{{URL: server.URL}})
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestChecker_RespectsRobots(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 1\n"))
			return
		}
		pageHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	limiter := worker.NewLimiter(100, 10)
	cfg := model.LinkCheckConfig{Timeout: 5 * time.Second, Workers: 1, RespectRobots: true}
	c := NewChecker(cfg, model.DefaultConfig().API, limiter)

	results := c.Check(context.Background(), []model.SourceRef{
		{URL: server.URL + "/private/doc"},
		{URL: server.URL + "/public"},
	})
	if !results[0].Blocked || results[0].Reachable {
		t.Errorf("expected /private to be blocked, got %+v", results[0])
	}
	if !results[1].Reachable {
		t.Errorf("expected /public to be reachable, got %+v", results[1])
	}
	if pageHits.Load() != 1 {
		t.Errorf("expected only the public page to be fetched, got %d hits", pageHits.Load())
	}
}

func TestChecker_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newTestChecker(false).Check(ctx, []model.SourceRef{{URL: "http://127.0.0.1:1/x"}})
	if results[0].Reachable || results[0].Error == "" {
		t.Errorf("expected cancelled check to fail, got %+v", results[0])
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{"503", Result{StatusCode: 503}, true},
		{"429", Result{StatusCode: 429}, true},
		{"404", Result{StatusCode: 404}, false},
		{"timeout", Result{Error: "request failed: Client.Timeout exceeded"}, true},
		{"refused", Result{Error: "dial tcp: connection refused"}, true},
		{"robots", Result{Error: "disallowed by robots.txt"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.result); got != tt.want {
				t.Errorf("isRetryable(%+v) = %v, want %v", tt.result, got, tt.want)
			}
		})
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"ClearView-CLI/0.1 (+https://github.com/ppiankov/clearview)": "ClearView-CLI",
		"curl/8.0": "curl",
		"":         "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
