// Package testkit holds the storage.CAS conformance suite and an in-memory
// CAS for tests.
package testkit

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/storage"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

// SampleBody is a canonical transaction body (a signed CREATE with id null).
const SampleBody = `{"asset":{"data":{"kyc":{"dob":"7/19/1988 12:00:00 AM +05:00","nab":"Hang MioLoi","pob":"CN","user_hash":"5c9b0ddd16f0d6471c661c0e"}}},"id":null,"inputs":[{"fulfillment":"pGSAIOwsDX_8KpzAef-aHlT1QXPnf23YDNEHK26-hw9xtTgEgUC8BRcfa8Lk1-g9jO5oxoxDD8OsocrCBzkOixtFMNc3nd-jopXGGxSIjSlWwzVZl2zB8tYcAEOiV-BgSpZM8_UL","fulfills":null,"owners_before":["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"]}],"metadata":{"Error":null,"Status":"A","Transaction":null},"operation":"CREATE","outputs":[{"amount":"1","condition":{"details":{"public_key":"GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF","type":"ed25519-sha-256"},"uri":"ni:///sha-256;sAdXqonGQXqcDfhFR8JchTEYlBXvn15Z_QnEOV-8j5I?fpt=ed25519-sha-256&cost=131072"},"public_keys":["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"]}],"version":"2.0"}`

// SampleTxID is the transaction id of SampleBody.
const SampleTxID = "db352f3fd363e7a900efe68889982cb83e951d85d1e42ac53003ef0686d5437c"

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte(SampleBody)

		id, err := cas.Put(ctx, want)
		require.NoError(t, err)
		wantID, err := cidutil.Sum(want)
		require.NoError(t, err)
		assert.True(t, id.Equals(wantID), "Put CID mismatch: got %s want %s", id, wantID)

		txID, err := cidutil.TxID(id)
		require.NoError(t, err)
		assert.Equal(t, SampleTxID, txID)

		got, err := cas.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.True(t, cidutil.Verify(id, got), "Get returned bytes not matching requested CID")
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(ctx, b)
		require.NoError(t, err)
		id2, err := cas.Put(ctx, b)
		require.NoError(t, err)
		assert.True(t, id1.Equals(id2), "Put not idempotent: %s vs %s", id1, id2)
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.Sum(b)
		require.NoError(t, err)

		ok, err := cas.Has(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, "Has returned true for missing CID")
		_, err = cas.Get(ctx, id)
		assert.True(t, storage.IsNotFound(err), "Get missing: got err=%v want ErrNotFound", err)

		_, err = cas.Put(ctx, b)
		require.NoError(t, err)
		ok, err = cas.Has(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "Has returned false after Put")
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		ok, _ := cas.Has(ctx, undef)
		assert.False(t, ok, "Has should be false for undefined CID")
		_, err := cas.Get(ctx, undef)
		assert.Error(t, err, "Get should fail for undefined CID")
	})
}
