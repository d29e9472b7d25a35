package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx.io/ledgertx/txerr"
)

const referenceCanonicalCreate = `{"asset":{"data":{"kyc":{"dob":"7/19/1988 12:00:00 AM +05:00","nab":"Hang MioLoi","pob":"CN","user_hash":"5c9b0ddd16f0d6471c661c0e"}}},"id":null,"inputs":[{"fulfillment":null,"fulfills":null,"owners_before":["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"]}],"metadata":{"Error":null,"Status":"A","Transaction":null},"operation":"CREATE","outputs":[{"amount":"1","condition":{"details":{"public_key":"GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF","type":"ed25519-sha-256"},"uri":"ni:///sha-256;GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF?fpt=ed25519-sha-256&cost=131072"},"public_keys":["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"]}],"version":"2.0"}`

// Same logical document as referenceCanonicalCreate with shuffled keys and whitespace.
const shuffledCreate = `{
  "version": "2.0",
  "outputs": [{
    "public_keys": ["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"],
    "condition": {
      "uri": "ni:///sha-256;GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF?fpt=ed25519-sha-256&cost=131072",
      "details": {"type": "ed25519-sha-256", "public_key": "GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"}
    },
    "amount": "1"
  }],
  "operation": "CREATE",
  "metadata": {"Transaction": null, "Status": "A", "Error": null},
  "inputs": [{"owners_before": ["GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"], "fulfills": null, "fulfillment": null}],
  "id": null,
  "asset": {"data": {"kyc": {"user_hash": "5c9b0ddd16f0d6471c661c0e", "pob": "CN", "nab": "Hang MioLoi", "dob": "7/19/1988 12:00:00 AM +05:00"}}}
}`

func TestMarshalJSON_ReferenceVector(t *testing.T) {
	got, err := MarshalJSON([]byte(shuffledCreate))
	require.NoError(t, err)
	assert.Equal(t, referenceCanonicalCreate, string(got))

	again, err := MarshalJSON(got)
	require.NoError(t, err)
	assert.Equal(t, string(got), string(again), "canonical form must be a fixed point")
}

type payloadA struct {
	Zeta  string   `json:"zeta"`
	Alpha int      `json:"alpha"`
	Mid   []string `json:"mid"`
	Null  *string  `json:"null"`
}

func TestMarshal_DeterministicAcrossConstructionOrder(t *testing.T) {
	s := payloadA{Zeta: "z", Alpha: 1, Mid: []string{"b", "a"}}

	m1 := map[string]any{}
	m1["zeta"] = "z"
	m1["alpha"] = 1
	m1["mid"] = []any{"b", "a"}
	m1["null"] = nil

	m2 := map[string]any{"null": nil, "mid": []string{"b", "a"}, "alpha": 1.0, "zeta": "z"}

	want := `{"alpha":1,"mid":["b","a"],"null":null,"zeta":"z"}`
	for i, v := range []any{s, m1, m2} {
		got, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, want, string(got), "case %d", i)
	}

	eq, err := Equal(s, m2)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestMarshal_NullIsKeptNotOmitted(t *testing.T) {
	type withID struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	}
	got, err := Marshal(withID{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":null,"name":"x"}`, string(got))
}

func TestMarshal_StringEscaping(t *testing.T) {
	got, err := Marshal(map[string]string{"s": "a\"b\\c\n\t\x01<&>é "})
	require.NoError(t, err)
	assert.Equal(t, "{\"s\":\"a\\\"b\\\\c\\n\\t\\u0001<&>é \"}", string(got))
}

func TestMarshalJSON_Numbers(t *testing.T) {
	cases := map[string]string{
		`[1.0]`:                   `[1]`,
		`[1.50]`:                  `[1.5]`,
		`[-0]`:                    `[0]`,
		`[0.0]`:                   `[0]`,
		`[1e21]`:                  `[1e+21]`,
		`[1E-7]`:                  `[1e-7]`,
		`[0.000001]`:              `[0.000001]`,
		`[123456789012345678901]`: `[123456789012345678901]`,
		`[2.5e3]`:                 `[2500]`,
	}
	for in, want := range cases {
		got, err := MarshalJSON([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, string(got), in)
	}
}

func TestMarshalJSON_KeyOrderIsBytewise(t *testing.T) {
	got, err := MarshalJSON([]byte(`{"b":1,"B":2,"a":3,"_":4,"aa":5}`))
	require.NoError(t, err)
	assert.Equal(t, `{"B":2,"_":4,"a":3,"aa":5,"b":1}`, string(got))
}

func TestMarshalJSON_Rejects(t *testing.T) {
	for _, in := range []string{
		`{"a":1,"a":2}`,
		`{"a":1} {}`,
		`{"a":`,
		``,
	} {
		_, err := MarshalJSON([]byte(in))
		require.Error(t, err, in)
		assert.True(t, txerr.IsKind(err, txerr.KindCanonical), in)
	}
}

func TestMarshal_Unrepresentable(t *testing.T) {
	_, err := Marshal(map[string]any{"c": make(chan int)})
	require.Error(t, err)
	assert.Equal(t, "TX-CANON-001", txerr.RuleID(err))
}
