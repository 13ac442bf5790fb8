package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPostalCode_AllLeadingDigits(t *testing.T) {
	for first := 1; first <= 9; first++ {
		for _, rest := range []string{"00000", "12345", "99999", "10001"} {
			pin := fmt.Sprintf("%d%s", first, rest)
			assert.True(t, IsValidPostalCode(pin), "pin=%s", pin)
		}
	}
}

func TestIsValidPostalCode_Rejects(t *testing.T) {
	tests := []string{
		"",
		"012345",
		"11000",
		"1100011",
		"11000a",
		"110 001",
		"110-001",
		"abcdef",
		"１１０００１",
	}
	for _, v := range tests {
		assert.False(t, IsValidPostalCode(v), "value=%q", v)
	}
}

func TestIsValidPostalCode_Trims(t *testing.T) {
	assert.True(t, IsValidPostalCode("  560001 "))
	assert.True(t, IsValidPostalCode("\t400001\n"))
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.png", true},
		{"http://example.com", true},
		{"  https://example.com  ", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"", false},
		{"HTTPS://example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidURL(tt.in), "url=%q", tt.in)
	}
}

func TestKnownSet(t *testing.T) {
	k := NewKnownSet([]string{"Mumbai", "", "Delhi"}, []string{"Maharashtra", "Delhi"})

	assert.True(t, k.IsKnownCity("Mumbai"))
	assert.False(t, k.IsKnownCity("mumbai"))
	assert.False(t, k.IsKnownCity(""))
	assert.True(t, k.IsKnownState("Delhi"))
	assert.False(t, k.IsKnownState("Karnataka"))

	cities, states := k.Len()
	assert.Equal(t, 2, cities)
	assert.Equal(t, 2, states)
}

func TestKnownSet_Nil(t *testing.T) {
	var k *KnownSet
	assert.False(t, k.IsKnownCity("Mumbai"))
	assert.False(t, k.IsKnownState("Maharashtra"))
	c, s := k.Len()
	assert.Zero(t, c)
	assert.Zero(t, s)
}
