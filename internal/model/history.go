package model

import "time"

// HistoryEntry is a completed fact-check kept in the local history.
// Entries are never mutated after creation.
type HistoryEntry struct {
	ID              string      `json:"id"`
	Claim           string      `json:"claim"`
	Verdict         Verdict     `json:"verdict"`
	Confidence      float64     `json:"confidence"`
	PolicySources   []SourceRef `json:"policy_sources"`
	ExternalSources []SourceRef `json:"external_sources"`
	Reasoning       string      `json:"reasoning"`
	ConflictsFound  bool        `json:"conflicts_found"`
	CreatedAt       time.Time   `json:"timestamp"` // ISO-8601 on disk
}

// Result returns the verification result stored in the entry
func (e HistoryEntry) Result() VerificationResponse {
	return VerificationResponse{
		Claim:           e.Claim,
		Verdict:         e.Verdict,
		Confidence:      e.Confidence,
		PolicySources:   e.PolicySources,
		ExternalSources: e.ExternalSources,
		Reasoning:       e.Reasoning,
		ConflictsFound:  e.ConflictsFound,
	}
}
