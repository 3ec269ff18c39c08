package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGCSAdapter_ConcurrencyDefault(t *testing.T) {
	a := NewGCSAdapterWithClient(nil, "bucket", 0)
	assert.Equal(t, 100, a.Concurrency())
}

func TestGCSAdapter_ConcurrencyExplicit(t *testing.T) {
	a := NewGCSAdapterWithClient(nil, "bucket", 42)
	assert.Equal(t, 42, a.Concurrency())
}
