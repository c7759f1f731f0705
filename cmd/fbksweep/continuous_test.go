package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositiveInt(t *testing.T) {
	v, err := positiveInt("301", "nrows")
	require.NoError(t, err)
	assert.Equal(t, 301, v)

	for _, bad := range []string{"0", "-3", "2.5", "abc", ""} {
		_, err := positiveInt(bad, "nrows")
		assert.Error(t, err, "input %q", bad)
	}
}
