package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Permissive, m)

	m, err = ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)
	assert.Equal(t, "strict", m.String())

	_, err = ParseMode("Strict")
	assert.Error(t, err)
}
