package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Verdict is the categorical outcome returned by the verification backend.
// The backend is free to send labels outside the known set (e.g. "Mostly True").
type Verdict string

const (
	VerdictTrue          Verdict = "TRUE"
	VerdictFalse         Verdict = "FALSE"
	VerdictPartiallyTrue Verdict = "PARTIALLY_TRUE"
	VerdictUnverifiable  Verdict = "UNVERIFIABLE"
)

// VerdictCategory groups verdict labels for display and filtering
type VerdictCategory string

const (
	CategoryTrue  VerdictCategory = "true"
	CategoryFalse VerdictCategory = "false"
	CategoryMixed VerdictCategory = "mixed"
)

// Category classifies a verdict label: anything mentioning "false" is false,
// anything mentioning "true" otherwise is true, the rest is mixed.
func (v Verdict) Category() VerdictCategory {
	lower := strings.ToLower(string(v))
	switch {
	case strings.Contains(lower, "false"):
		return CategoryFalse
	case strings.Contains(lower, "true"):
		return CategoryTrue
	default:
		return CategoryMixed
	}
}

// Label returns a human-friendly verdict label ("PARTIALLY_TRUE" -> "Partially True")
func (v Verdict) Label() string {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return "Unknown"
	}
	if strings.ToUpper(s) != s {
		return s
	}
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(s), "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// VerificationRequest is the body of POST /api/v1/verify
type VerificationRequest struct {
	Claim string `json:"claim"`
}

// LegacyVerificationRequest is the body of POST /verify-news
type LegacyVerificationRequest struct {
	News string `json:"news"`
}

// VerificationResponse is the backend's verdict for a single claim
type VerificationResponse struct {
	Claim           string      `json:"claim"`
	Verdict         Verdict     `json:"verdict"`
	Confidence      float64     `json:"confidence"` // 0-1
	PolicySources   []SourceRef `json:"policy_sources"`
	ExternalSources []SourceRef `json:"external_sources"`
	Reasoning       string      `json:"reasoning"`
	ConflictsFound  bool        `json:"conflicts_found"`
}

// Sources returns policy sources followed by external sources
func (r VerificationResponse) Sources() []SourceRef {
	all := make([]SourceRef, 0, len(r.PolicySources)+len(r.ExternalSources))
	all = append(all, r.PolicySources...)
	all = append(all, r.ExternalSources...)
	return all
}

// SourceURLs returns the distinct non-empty URLs cited by the result, in order
func (r VerificationResponse) SourceURLs() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, s := range r.Sources() {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		urls = append(urls, s.URL)
	}
	return urls
}
