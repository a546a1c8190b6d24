package verifier

import (
	"context"
	"sync"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
)

// AggregateMaxProofs bounds a single aggregate request (spec.md §4.6
// "accept 1..100 proof entries").
const AggregateMaxProofs = 100

// AggregateEntry is one item of a `POST /proof/aggregate` request.
type AggregateEntry struct {
	Proof         Proof
	PublicSignals []string
}

// AggregateItemResult is one entry of the aggregate response's
// `results` array (spec.md §4.6).
type AggregateItemResult struct {
	Index int
	Valid bool
	Error string
}

// AggregateResult is the full `POST /proof/aggregate` response.
type AggregateResult struct {
	AllValid   bool
	Total      int
	ValidCount int
	Results    []AggregateItemResult
}

// Aggregate verifies every entry concurrently, bounded by s.pool, and
// isolates per-entry failures so one bad proof can't poison the rest
// (spec.md §4.6 "A single failure must not poison others").
func (s *Service) Aggregate(ctx context.Context, entries []AggregateEntry) (AggregateResult, error) {
	if len(entries) < 1 || len(entries) > AggregateMaxProofs {
		return AggregateResult{}, apperr.New(apperr.KindValidation, "aggregate accepts 1..100 proof entries")
	}

	// Each goroutine calls the ordinary Verify pipeline, which itself
	// bounds the CPU-bound Groth16 step through s.pool — spawning one
	// goroutine per entry here just lets the I/O-bound cache/nullifier
	// steps of independent entries overlap; it does not oversubscribe
	// the CPU, since that's gated one layer down.
	results := make([]AggregateItemResult, len(entries))
	var wg sync.WaitGroup
	wg.Add(len(entries))
	for i, entry := range entries {
		i, entry := i, entry
		go func() {
			defer wg.Done()
			results[i] = s.verifyOne(ctx, i, entry)
		}()
	}
	wg.Wait()

	result := AggregateResult{Total: len(entries), Results: results, AllValid: true}
	for _, r := range results {
		if r.Valid {
			result.ValidCount++
		} else {
			result.AllValid = false
		}
	}
	return result, nil
}

// verifyOne runs the full verify pipeline for one aggregate entry,
// converting any error into a result-level Error string rather than
// propagating it (isolation, per spec.md §4.6).
func (s *Service) verifyOne(ctx context.Context, index int, entry AggregateEntry) AggregateItemResult {
	res, err := s.Verify(ctx, VerifyRequest{Proof: entry.Proof, PublicSignals: entry.PublicSignals})
	if err != nil {
		return AggregateItemResult{Index: index, Valid: res.Valid, Error: err.Error()}
	}
	return AggregateItemResult{Index: index, Valid: res.Valid}
}
