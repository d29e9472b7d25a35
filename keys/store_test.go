package keys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStore_RootAndRole(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	require.NoError(t, err)

	seed, err := ParseSeed(aliceSeed)
	require.NoError(t, err)

	pub, path, err := ks.InitializeRootKey("alice", seed, false)
	require.NoError(t, err)
	assert.Equal(t, alicePub, pub)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, _, err = ks.InitializeRootKey("alice", seed, false)
	require.Error(t, err, "existing root key must not be overwritten")

	rolePub, rolePath, err := ks.DeriveKeyFromRole("alice", "issuer", false)
	require.NoError(t, err)
	assert.NotEqual(t, alicePub, rolePub)
	assert.Equal(t, filepath.Join(ks.Directory, "alice", "roles", "issuer.key"), rolePath)

	exported, err := ks.ExportKey("alice", "issuer")
	require.NoError(t, err)
	assert.Equal(t, rolePub, exported)

	priv, err := ks.PrivateKey("alice", "")
	require.NoError(t, err)
	assert.Equal(t, aliceSeed, priv)

	loaded, err := ks.LoadSeed("", "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, seed, loaded)
	loaded, err = ks.LoadSeed("", "", "", rolePath)
	require.NoError(t, err)
	assert.Len(t, loaded, 32)

	list, err := ks.ListKeys()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, KeyEntry{Identifier: "alice", PublicKey: alicePub, Roles: []string{"issuer"}}, list[0])
}

func TestKeyStore_Rejects(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	require.NoError(t, err)

	_, err = ks.LoadSeed("", "", "", "")
	require.Error(t, err)
	_, err = ks.ExportKey("../escape", "")
	require.Error(t, err)
	_, err = ks.ExportKey("missing", "")
	require.Error(t, err)

	list, err := (&KeyStore{Directory: filepath.Join(t.TempDir(), "none")}).ListKeys()
	require.NoError(t, err)
	assert.Nil(t, list)
}
