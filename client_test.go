package revenium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClient(t *testing.T) {
	clearEnv(t)
	t.Setenv("REVENIUM_API_KEY", "hak_default")
	ResetDefault()
	t.Cleanup(ResetDefault)

	first, err := Default()
	require.NoError(t, err)
	second, err := Default()
	require.NoError(t, err)
	assert.Same(t, first, second)

	ResetDefault()
	third, err := Default()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestDefaultClientConfigError(t *testing.T) {
	clearEnv(t)
	ResetDefault()
	t.Cleanup(ResetDefault)

	_, err := Default()
	require.Error(t, err)

	// A failed construction must not poison the cell.
	t.Setenv("REVENIUM_API_KEY", "hak_recovered")
	client, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "hak_recovered", client.cfg.APIKey)
}
