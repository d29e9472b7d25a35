package casregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/testkit"
)

func TestRegisterAndOpen(t *testing.T) {
	var seen Settings
	require.NoError(t, Register(Backend{
		Name:  "test-mem",
		Usage: UsageCLI,
		Options: []Option{
			{Key: "size", Default: "4"},
			{Key: "label"},
		},
		Open: func(_ context.Context, env Env) (storage.CAS, func() error, error) {
			seen = env.Settings
			return testkit.NewMemCAS(), nil, nil
		},
	}))
	assert.Contains(t, Names(UsageCLI), "test-mem")
	assert.NotContains(t, Names(UsageDaemon), "test-mem")

	cas, _, err := Open(context.Background(), "test-mem", UsageCLI, map[string]string{"label": "x"}, nil)
	require.NoError(t, err)
	require.NotNil(t, cas)
	assert.Equal(t, Settings{"size": "4", "label": "x"}, seen)
	n, err := seen.Int("size")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, _, err = Open(context.Background(), "test-mem", UsageCLI, map[string]string{"bogus": "1"}, nil)
	require.Error(t, err)
	_, _, err = Open(context.Background(), "test-mem", UsageDaemon, nil, nil)
	require.Error(t, err)
	_, _, err = Open(context.Background(), "nope", UsageCLI, nil, nil)
	require.Error(t, err)

	require.Error(t, Register(Backend{Name: "test-mem", Usage: UsageCLI, Open: func(context.Context, Env) (storage.CAS, func() error, error) { return nil, nil, nil }}))
	require.Error(t, Register(Backend{Name: "no-open", Usage: UsageCLI}))
}

func TestSettings(t *testing.T) {
	s := Settings{"d": "2s", "b": "true", "n": "x"}
	d, err := s.Duration("d")
	require.NoError(t, err)
	assert.Equal(t, "2s", d.String())
	b, err := s.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)
	_, err = s.Int("n")
	require.Error(t, err)
	zero, err := s.Int("missing")
	require.NoError(t, err)
	assert.Zero(t, zero)
}
