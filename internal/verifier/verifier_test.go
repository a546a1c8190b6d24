package verifier

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/cache"
	"github.com/thesecretlab-dev/zeroid/internal/store"
)

// fakeGroth16 returns a fixed result for every proof: a real Groth16
// verify needs a live trusted-setup vkey and a matching BN254 proof,
// neither of which is reproducible in a unit test, so the pipeline
// tests below substitute this for the `ProofVerifier` interface instead.
type fakeGroth16 struct {
	valid bool
	err   error
}

func (f *fakeGroth16) Verify(Proof, []string) (bool, error) { return f.valid, f.err }

func sampleSignals(nullifier, appID int64) []string {
	return []string{
		"1", "2", "18",
		"408",
		strconv.FormatInt(appID, 10),
		strconv.FormatInt(nullifier, 10),
		"12345",
	}
}

func newTestService(t *testing.T, valid bool) *Service {
	t.Helper()
	l1 := cache.NewL1()
	l2 := cache.NewL2(store.NewMemoryKV(), make([]byte, 32))
	twoLayer := cache.NewTwoLayer(l1, l2)
	nullifiers := verifierNewNullifierRegistry(t)
	return NewService(&fakeGroth16{valid: valid}, twoLayer, nullifiers, NewPool(), nil)
}

func verifierNewNullifierRegistry(t *testing.T) *NullifierRegistry {
	t.Helper()
	auditStore := store.NewMemoryAuditStore()
	return NewNullifierRegistry(store.NewMemoryNullifiers(), audit.NewLogger(auditStore))
}

func Test_Fingerprint_DeterministicAndSensitiveToInput(t *testing.T) {
	proof := Proof{PiA: []string{"1", "2"}, Protocol: "groth16"}
	signals := sampleSignals(1, 1)

	fp1, err := Fingerprint(proof, signals)
	require.NoError(t, err)
	fp2, err := Fingerprint(proof, signals)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	otherSignals := sampleSignals(2, 1)
	fp3, err := Fingerprint(proof, otherSignals)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func Test_ParseSignals_RejectsWrongArity(t *testing.T) {
	_, err := ParseSignals([]string{"1", "2"})
	assert.Error(t, err)
}

func Test_ParseSignals_PositionalNullifierAndAppID(t *testing.T) {
	signals, err := ParseSignals(sampleSignals(42, 7))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), signals.Nullifier)
	assert.Equal(t, big.NewInt(7), signals.AppID)
}

// Test_Verify_HappyPath_RegistersNullifierAndCaches covers spec.md §8
// scenario 1's proof-side continuation.
func Test_Verify_HappyPath_RegistersNullifierAndCaches(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()
	req := VerifyRequest{Proof: Proof{Protocol: "groth16"}, PublicSignals: sampleSignals(100, 1)}

	res, err := svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.False(t, res.Cached)

	cached, err := svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.True(t, cached.Valid)
}

// Test_Verify_Replay_ReturnsConflict covers spec.md §8 scenario 4.
func Test_Verify_Replay_ReturnsConflict(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	signals := sampleSignals(200, 1)
	req1 := VerifyRequest{Proof: Proof{Protocol: "groth16", PiA: []string{"a"}}, PublicSignals: signals}
	_, err := svc.Verify(ctx, req1)
	require.NoError(t, err)

	// Different proof bytes but same nullifier: bypasses the fingerprint
	// cache, must still be rejected by the nullifier registry.
	req2 := VerifyRequest{Proof: Proof{Protocol: "groth16", PiA: []string{"b"}}, PublicSignals: signals}
	_, err = svc.Verify(ctx, req2)
	require.Error(t, err)
}

func Test_Verify_InvalidProof_DoesNotRegisterNullifier(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()
	req := VerifyRequest{Proof: Proof{Protocol: "groth16"}, PublicSignals: sampleSignals(300, 1)}

	res, err := svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

// Test_Aggregate_IsolatesFailures covers spec.md §4.6's aggregation
// isolation guarantee: a single bad proof must not affect others'
// results.
func Test_Aggregate_IsolatesFailures(t *testing.T) {
	l1 := cache.NewL1()
	l2 := cache.NewL2(store.NewMemoryKV(), make([]byte, 32))
	twoLayer := cache.NewTwoLayer(l1, l2)
	nullifiers := verifierNewNullifierRegistry(t)
	svc := NewService(&flakyGroth16{}, twoLayer, nullifiers, NewPool(), nil)

	entries := make([]AggregateEntry, 5)
	for i := range entries {
		entries[i] = AggregateEntry{Proof: Proof{Protocol: "groth16"}, PublicSignals: sampleSignals(int64(1000+i), 1)}
	}
	// Force one entry to error out deterministically.
	entries[2].PublicSignals = []string{"too", "few"}

	result, err := svc.Aggregate(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.False(t, result.AllValid)
	assert.NotEmpty(t, result.Results[2].Error)
	assert.True(t, result.Results[0].Valid)
	assert.True(t, result.Results[4].Valid)
}

func Test_Aggregate_RejectsOutOfRangeCount(t *testing.T) {
	svc := newTestService(t, true)
	_, err := svc.Aggregate(context.Background(), nil)
	assert.Error(t, err)

	tooMany := make([]AggregateEntry, AggregateMaxProofs+1)
	_, err = svc.Aggregate(context.Background(), tooMany)
	assert.Error(t, err)
}

type flakyGroth16 struct{}

func (flakyGroth16) Verify(Proof, []string) (bool, error) { return true, nil }

func Test_NullifierRegistry_ConcurrentRegister_OnlyOneWins(t *testing.T) {
	registry := verifierNewNullifierRegistry(t)
	signals := Signals{Nullifier: big.NewInt(77), AppID: big.NewInt(1)}

	var wg sync.WaitGroup
	wins := make([]bool, 10)
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := registry.RegisterOrReplay(context.Background(), signals, "cred")
			require.NoError(t, err)
			wins[i] = ok
		}()
	}
	wg.Wait()

	winCount := 0
	for _, w := range wins {
		if w {
			winCount++
		}
	}
	assert.Equal(t, 1, winCount)
}
