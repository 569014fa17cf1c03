package arbiter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/plang/pkg/arbiter"
	"github.com/Mindburn-Labs/plang/pkg/store"
)

func masterKeyring(t *testing.T) *arbiter.Keyring {
	t.Helper()
	provider, err := arbiter.NewMemoryKeyProvider()
	require.NoError(t, err)
	return arbiter.NewKeyring(provider)
}

func TestDeriveForTenant_Deterministic(t *testing.T) {
	master := masterKeyring(t)

	a, err := master.DeriveForTenant("acme")
	require.NoError(t, err)
	b, err := master.DeriveForTenant("acme")
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey(), b.PublicKey(), "same tenant derives the same keypair")

	other, err := master.DeriveForTenant("globex")
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey(), other.PublicKey())

	_, err = master.DeriveForTenant("")
	assert.Error(t, err)
}

func TestSignResult_RoundTrip(t *testing.T) {
	master := masterKeyring(t)
	ring, err := master.DeriveForTenant("acme")
	require.NoError(t, err)

	a := arbiter.New(store.NewMemoryStore(), nil)
	res, err := a.Arbitrate(context.Background(), "acme", []string{"P1"}, arbiter.Input{
		Contributions: []arbiter.Contribution{{PolicyID: "P1", Limits: arbiter.Limits{Tokens: f(5)}}},
	})
	require.NoError(t, err)

	token, err := ring.SignResult(res)
	require.NoError(t, err)

	claims, err := arbiter.VerifyResultToken(ring.PublicKey(), token)
	require.NoError(t, err)
	assert.Equal(t, res.SnapshotHash, claims.SnapshotHash)
	assert.Equal(t, "acme", claims.Subject)
	assert.Equal(t, string(res.EffectiveAction), claims.EffectiveAction)

	// A different tenant's key must not verify the token.
	otherRing, err := master.DeriveForTenant("globex")
	require.NoError(t, err)
	_, err = arbiter.VerifyResultToken(otherRing.PublicKey(), token)
	assert.Error(t, err)
}
