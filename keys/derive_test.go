package keys

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	root := make([]byte, ed25519.SeedSize)
	for i := range root {
		root[i] = byte(i)
	}

	a, err := DeriveRoleSeed(root, "approver")
	require.NoError(t, err)
	b, err := DeriveRoleSeed(root, "approver")
	require.NoError(t, err)
	assert.Equal(t, a, b, "expected deterministic derivation")

	c, err := DeriveRoleSeed(root, "issuer")
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "expected different roles to derive different seeds")
	assert.Len(t, c, ed25519.SeedSize)
}

func TestDeriveRoleSeedRejects(t *testing.T) {
	_, err := DeriveRoleSeed(make([]byte, 16), "issuer")
	require.Error(t, err)
	_, err = DeriveRoleSeed(make([]byte, ed25519.SeedSize), "bad role")
	require.Error(t, err)
}
