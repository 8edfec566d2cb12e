package util

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// NewProxyFunc returns the proxy selector for an http.Transport.
// Explicit proxies win over HTTP_PROXY/HTTPS_PROXY; hosts matching noProxy
// (comma-separated host names or ".suffix" entries) always go direct.
// An empty noProxy falls back to NO_PROXY from the environment.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	if noProxy == "" {
		noProxy = os.Getenv("NO_PROXY")
	}
	if noProxy == "" {
		noProxy = os.Getenv("no_proxy")
	}
	bypass := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseNoProxy(noProxy string) []string {
	var entries []string
	for _, e := range strings.Split(noProxy, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if host, _, err := net.SplitHostPort(e); err == nil {
			e = host
		}
		entries = append(entries, e)
	}
	return entries
}

func bypassed(host string, entries []string) bool {
	host = strings.ToLower(host)
	for _, e := range entries {
		switch {
		case e == "*":
			return true
		case strings.HasPrefix(e, "."):
			if strings.HasSuffix(host, e) || host == e[1:] {
				return true
			}
		case host == e || strings.HasSuffix(host, "."+e):
			return true
		}
	}
	return false
}
