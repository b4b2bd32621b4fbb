package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_InlineRoles(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/inline_roles.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalSnapshot_TrailingNewline(t *testing.T) {
	data, err := MarshalSnapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"scenario\": \"empty\",\n  \"steps\": []\n}\n", string(data))
}
