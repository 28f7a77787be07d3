package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonicAndWellFormed(t *testing.T) {
	Init()

	prev := New()
	require.Len(t, prev, 26)

	for i := 0; i < 1000; i++ {
		next := New()
		assert.Len(t, next, 26)
		assert.Greater(t, next, prev, "ids must be strictly increasing even within the same millisecond")
		prev = next
	}
}
