package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestVerdict_Category(t *testing.T) {
	tests := []struct {
		verdict  Verdict
		expected VerdictCategory
	}{
		{VerdictTrue, CategoryTrue},
		{VerdictFalse, CategoryFalse},
		{VerdictPartiallyTrue, CategoryTrue},
		{VerdictUnverifiable, CategoryMixed},
		{"Mostly True", CategoryTrue},
		{"Mostly False", CategoryFalse},
		{"mixture", CategoryMixed},
		{"", CategoryMixed},
	}

	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			if got := tt.verdict.Category(); got != tt.expected {
				t.Errorf("Category(%q) = %q, want %q", tt.verdict, got, tt.expected)
			}
		})
	}
}

func TestVerdict_Label(t *testing.T) {
	tests := []struct {
		verdict  Verdict
		expected string
	}{
		{VerdictTrue, "True"},
		{VerdictPartiallyTrue, "Partially True"},
		{VerdictUnverifiable, "Unverifiable"},
		{"Mostly True", "Mostly True"},
		{"ÉTAT_INCERTAIN", "État Incertain"},
		{"ÜBER", "Über"},
		{"  ", "Unknown"},
		{"", "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.verdict.Label(); got != tt.expected {
			t.Errorf("Label(%q) = %q, want %q", tt.verdict, got, tt.expected)
		}
	}
}

func TestSourceRef_Tier(t *testing.T) {
	tests := []struct {
		score    *float64
		expected TrustTier
	}{
		{nil, TrustUnknown},
		{Score(0.95), TrustHigh},
		{Score(0.9), TrustHigh},
		{Score(0.7), TrustMedium},
		{Score(0.69), TrustLow},
		{Score(0), TrustLow},
	}

	for _, tt := range tests {
		if got := (SourceRef{TrustScore: tt.score}).Tier(); got != tt.expected {
			t.Errorf("Tier(%v) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestVerificationResponse_SourceURLs(t *testing.T) {
	r := VerificationResponse{
		PolicySources: []SourceRef{
			{URL: "https://a.example"},
			{Title: "no url"},
		},
		ExternalSources: []SourceRef{
			{URL: "https://b.example"},
			{URL: "https://a.example"},
		},
	}

	want := []string{"https://a.example", "https://b.example"}
	if got := r.SourceURLs(); !reflect.DeepEqual(got, want) {
		t.Errorf("SourceURLs() = %v, want %v", got, want)
	}
	if n := len(r.Sources()); n != 4 {
		t.Errorf("expected 4 sources, got %d", n)
	}
}

func TestHistoryEntry_TimestampOnDisk(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := HistoryEntry{ID: "x", Claim: "c", Verdict: "TRUE", CreatedAt: created}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"timestamp":"2025-03-01T12:00:00Z"`) {
		t.Errorf("expected ISO-8601 timestamp field, got %s", data)
	}

	var back HistoryEntry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.CreatedAt.Equal(created) {
		t.Errorf("timestamp did not round-trip: %v", back.CreatedAt)
	}
}

func TestHistoryEntry_Result(t *testing.T) {
	entry := HistoryEntry{
		ID:             "x",
		Claim:          "Vaccines are safe",
		Verdict:        "Mostly True",
		Confidence:     0.85,
		PolicySources:  []SourceRef{{URL: "https://a.example"}},
		Reasoning:      "because",
		ConflictsFound: true,
	}

	r := entry.Result()
	if r.Claim != entry.Claim || r.Verdict != entry.Verdict || r.Confidence != 0.85 || !r.ConflictsFound {
		t.Errorf("unexpected result %+v", r)
	}
	if len(r.PolicySources) != 1 || r.Reasoning != "because" {
		t.Errorf("sources or reasoning lost: %+v", r)
	}
}

func TestIngestResponse_Succeeded(t *testing.T) {
	if !(IngestResponse{Status: "success"}).Succeeded() {
		t.Error("expected success")
	}
	if (IngestResponse{Status: "error"}).Succeeded() {
		t.Error("expected failure")
	}
}
