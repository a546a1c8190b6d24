package sanctions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Screener_IsSanctioned(t *testing.T) {
	screener, err := NewScreener(4, []int64{408, 364, 850})
	require.NoError(t, err)

	assert.True(t, screener.IsSanctioned(408)) // DPRK, spec.md §8 scenario 2
	assert.True(t, screener.IsSanctioned(364))
	assert.False(t, screener.IsSanctioned(840)) // US, not sanctioned
}

func Test_Screener_Proof_RoundTrips(t *testing.T) {
	screener, err := NewScreener(4, []int64{408, 364, 850})
	require.NoError(t, err)

	proof, idx, err := screener.Proof(364)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, 0)
	assert.NotNil(t, proof)
}

func Test_Screener_Proof_NotSanctioned(t *testing.T) {
	screener, err := NewScreener(4, []int64{408})
	require.NoError(t, err)

	_, _, err = screener.Proof(840)
	assert.ErrorIs(t, err, ErrNotSanctioned)
}

func Test_Screener_Refresh_SwapsAtomically(t *testing.T) {
	screener, err := NewScreener(4, []int64{408})
	require.NoError(t, err)
	assert.True(t, screener.IsSanctioned(408))
	assert.False(t, screener.IsSanctioned(643))

	require.NoError(t, screener.Refresh(4, []int64{643}))
	assert.False(t, screener.IsSanctioned(408))
	assert.True(t, screener.IsSanctioned(643))
}
