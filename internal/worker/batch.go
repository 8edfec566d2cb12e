package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// Verifier verifies a single claim
type Verifier interface {
	Verify(ctx context.Context, claim string) (*model.VerificationResponse, error)
}

// VerifyJob verifies one claim of a batch
type VerifyJob struct {
	Index    int
	Claim    string
	Verifier Verifier
}

// Execute runs the verification
func (j *VerifyJob) Execute(ctx context.Context) Result {
	resp, err := j.Verifier.Verify(ctx, j.Claim)
	return &VerifyResult{
		Index:  j.Index,
		Claim:  j.Claim,
		Result: resp,
		Error:  err,
	}
}

// VerifyResult is the outcome of a VerifyJob
type VerifyResult struct {
	Index  int
	Claim  string
	Result *model.VerificationResponse
	Error  error
}

// GetError returns the verification error, if any
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many claims concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// ProcessClaims verifies claims and returns results in input order.
// Claims not started before ctx ends are reported with ctx's error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*VerifyResult {
	if len(claims) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		pool.Submit(&VerifyJob{
			Index:    i,
			Claim:    claim,
			Verifier: b.verifier,
		})
	}

	results := make([]*VerifyResult, 0, len(claims))
	for _, r := range pool.Wait() {
		results = append(results, r.(*VerifyResult))
	}

	done := make(map[int]bool, len(results))
	for _, r := range results {
		done[r.Index] = true
	}
	for i, claim := range claims {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results = append(results, &VerifyResult{
				Index: i,
				Claim: claim,
				Error: fmt.Errorf("claim not processed: %w", err),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessFile reads claims from a file and verifies them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads one claim per line, skipping blanks, # comments and duplicates
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
