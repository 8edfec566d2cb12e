package model

// SourceRef is a citation returned by the verification backend.
// Empty strings stand for absent values; TrustScore is nil when the backend sent null.
type SourceRef struct {
	Title      string   `json:"title,omitempty"`
	URL        string   `json:"url,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	TrustScore *float64 `json:"trust_score,omitempty"` // 0-1
}

// TrustTier buckets a trust score for display
type TrustTier string

const (
	TrustHigh    TrustTier = "high"    // >= 0.9
	TrustMedium  TrustTier = "medium"  // >= 0.7
	TrustLow     TrustTier = "low"     // below 0.7
	TrustUnknown TrustTier = "unknown" // no score
)

// Tier returns the trust tier of the source
func (s SourceRef) Tier() TrustTier {
	if s.TrustScore == nil {
		return TrustUnknown
	}
	switch score := *s.TrustScore; {
	case score >= 0.9:
		return TrustHigh
	case score >= 0.7:
		return TrustMedium
	default:
		return TrustLow
	}
}

// Score returns a pointer to v, for building SourceRef literals
func Score(v float64) *float64 {
	return &v
}
