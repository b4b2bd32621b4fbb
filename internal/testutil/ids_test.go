package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("req-1")
	assert.Equal(t, "req-1", gen.Generate())
	assert.Equal(t, "req-1", gen.Generate())
}

func TestFixedIDGenerator_DefaultID(t *testing.T) {
	gen := NewFixedIDGenerator("")
	assert.Equal(t, "test-request-default", gen.Generate())
}
