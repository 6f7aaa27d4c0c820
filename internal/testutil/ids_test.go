package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("")

	first, err := gen.Generate()
	require.NoError(t, err)
	second, err := gen.Generate()
	require.NoError(t, err)

	assert.Equal(t, "node-0001", first)
	assert.Equal(t, "node-0002", second)
}

func TestSequentialIDs_Prefix(t *testing.T) {
	gen := NewSequentialIDs("n")

	id, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, "n-0001", id)
}
