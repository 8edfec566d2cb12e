package linkcheck

import (
	"net/url"
	"strings"
)

// Authority ranks the kind of site a source lives on
type Authority string

const (
	AuthorityPrimary   Authority = "primary"   // official bodies, statutes, academic papers
	AuthoritySecondary Authority = "secondary" // encyclopedias, wire services, major media
	AuthorityTertiary  Authority = "tertiary"  // everything else
)

// AuthorityClassifier classifies source URLs into authority tiers
type AuthorityClassifier struct {
	primary   map[string]bool
	secondary map[string]bool
}

// NewAuthorityClassifier creates a classifier. A listed domain also covers its subdomains.
func NewAuthorityClassifier(primaryDomains, secondaryDomains []string) *AuthorityClassifier {
	a := &AuthorityClassifier{
		primary:   make(map[string]bool, len(primaryDomains)),
		secondary: make(map[string]bool, len(secondaryDomains)),
	}
	for _, d := range primaryDomains {
		a.primary[normalizeDomain(d)] = true
	}
	for _, d := range secondaryDomains {
		a.secondary[normalizeDomain(d)] = true
	}
	return a
}

// Classify returns the authority tier of rawURL
func (a *AuthorityClassifier) Classify(rawURL string) Authority {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return AuthorityTertiary
	}
	host := normalizeDomain(parsed.Hostname())
	if host == "" {
		return AuthorityTertiary
	}

	if matchDomain(a.primary, host) {
		return AuthorityPrimary
	}
	if matchDomain(a.secondary, host) {
		return AuthoritySecondary
	}

	// government and academic TLDs
	for _, suffix := range []string{".gov", ".mil", ".edu", ".ac.uk", ".gov.uk", ".int"} {
		if strings.HasSuffix(host, suffix) {
			return AuthorityPrimary
		}
	}
	return AuthorityTertiary
}

// matchDomain walks host and its parent domains (a.b.c, b.c, c)
func matchDomain(set map[string]bool, host string) bool {
	for h := host; h != ""; {
		if set[h] {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return false
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}
