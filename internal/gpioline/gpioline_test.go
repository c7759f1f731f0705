//go:build linux

package gpioline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenMissingChipFails(t *testing.T) {
	_, err := Open("gpiochip99", 13, 19, 26)
	assert.Error(t, err)
}
