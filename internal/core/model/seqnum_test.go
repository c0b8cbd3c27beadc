package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrap(t *testing.T) {
	assert.Equal(t, int64(1_294_967_296), Unwrap(-3_000_000_000))
	assert.Equal(t, int64(-50), Unwrap(-50))
	assert.Equal(t, int64(-(1 << 31)), Unwrap(-(1 << 31)))
	assert.Equal(t, int64(30), Unwrap(30))
}
