package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoomCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewRoomCode()
		assert.True(t, IsValidRoomCode(code), "generated code %q should be valid", code)
	}
}

func TestIsValidRoomCode(t *testing.T) {
	assert.True(t, IsValidRoomCode("ABCD"))
	assert.False(t, IsValidRoomCode("abcd"))
	assert.False(t, IsValidRoomCode("ABC"))
	assert.False(t, IsValidRoomCode("ABCDE"))
	assert.False(t, IsValidRoomCode("AB1D"))
	assert.False(t, IsValidRoomCode(""))
}

func TestPickUnusedAvoidsTaken(t *testing.T) {
	palette := []string{"a", "b", "c"}
	taken := map[string]bool{"a": true, "b": true}
	for i := 0; i < 20; i++ {
		assert.Equal(t, "c", PickUnused(palette, taken))
	}
}

func TestPickUnusedExhaustedFallsBack(t *testing.T) {
	palette := []string{"a", "b"}
	taken := map[string]bool{"a": true, "b": true}
	picked := PickUnused(palette, taken)
	assert.Contains(t, palette, picked)
}
