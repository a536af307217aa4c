package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("bbb", "aaa")
	assert.Equal(t, "aaa", a)
	assert.Equal(t, "bbb", b)

	a, b = CanonicalPair("aaa", "bbb")
	assert.Equal(t, "aaa", a)
	assert.Equal(t, "bbb", b)
}
