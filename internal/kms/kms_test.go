package kms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LocalProvider_IssuerKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	keyID, err := provider.New(ctx, KeyTypeIssuerEdDSA, "issuer")
	require.NoError(t, err)
	assert.Equal(t, KeyTypeIssuerEdDSA, keyID.Type)

	exists, err := provider.Exists(ctx, keyID)
	require.NoError(t, err)
	assert.True(t, exists)

	pub, err := provider.PublicKey(ctx, keyID)
	require.NoError(t, err)
	assert.Len(t, pub, 64)

	sig, err := provider.Sign(ctx, keyID, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, sig, 96)

	require.NoError(t, provider.Delete(ctx, keyID))
	exists, err = provider.Exists(ctx, keyID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func Test_LocalProvider_RegulatorKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	provider, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	keyID, err := provider.New(ctx, KeyTypeRegulatorAES, "default")
	require.NoError(t, err)

	key, err := provider.SymmetricKey(ctx, keyID)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = provider.PublicKey(ctx, keyID)
	assert.ErrorIs(t, err, ErrIncorrectKeyType)
}

func Test_LocalProvider_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewLocalProvider(dir)
	require.NoError(t, err)
	keyID, err := first.New(ctx, KeyTypeRegulatorAES, "default")
	require.NoError(t, err)
	key1, err := first.SymmetricKey(ctx, keyID)
	require.NoError(t, err)

	second, err := NewLocalProvider(dir)
	require.NoError(t, err)
	key2, err := second.SymmetricKey(ctx, keyID)
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
}

func Test_RegulatorKeys_CachesAfterFirstLoad(t *testing.T) {
	ctx := context.Background()
	provider, err := NewLocalProvider("")
	require.NoError(t, err)
	keyID, err := provider.New(ctx, KeyTypeRegulatorAES, "default")
	require.NoError(t, err)

	regKeys := NewRegulatorKeys(provider)

	key1, err := regKeys.Get(ctx, keyID.ID)
	require.NoError(t, err)

	require.NoError(t, provider.Delete(ctx, keyID))

	key2, err := regKeys.Get(ctx, keyID.ID)
	require.NoError(t, err)
	assert.Equal(t, key1, key2, "cached key should survive backing deletion until Forget")

	regKeys.Forget(keyID.ID)
	_, err = regKeys.Get(ctx, keyID.ID)
	assert.Error(t, err, "forgotten key should re-fetch and fail once truly gone")
}

func Test_LocalProvider_UnknownKeyNotFound(t *testing.T) {
	ctx := context.Background()
	provider, err := NewLocalProvider("")
	require.NoError(t, err)

	_, err = provider.SymmetricKey(ctx, KeyID{Type: KeyTypeRegulatorAES, ID: "ghost"})
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
