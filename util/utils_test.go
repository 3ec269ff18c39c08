package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{"Empty", "", "<not set>"},
		{"Short", "short", "***"},
		{"Long", "myverylongsecretkey123", "myve...y123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSecret(tt.secret))
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("BRAINY_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("BRAINY_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvInt("BRAINY_TEST_MISSING", 7))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("BRAINY_TEST_BOOL", "yes")
	assert.True(t, GetEnvBool("BRAINY_TEST_BOOL", false))
	assert.False(t, GetEnvBool("BRAINY_TEST_MISSING", false))
}

func TestMust(t *testing.T) {
	assert.Equal(t, 5, Must(5, nil))
	assert.Panics(t, func() { Must(5, errors.New("boom")) })
}

func TestPtrValue(t *testing.T) {
	v := 3
	assert.Equal(t, 3, PtrValue(&v))
	assert.Equal(t, 0, PtrValue[int](nil))
}
