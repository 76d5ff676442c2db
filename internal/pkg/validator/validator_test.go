package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.7":        "203.0.113.7",
		" 203.0.113.7 ":      "203.0.113.7",
		"203.0.113.7:443":    "203.0.113.7",
		"[2001:db8::1]:8080": "2001:db8::1",
		"fe80::1%eth0":       "fe80::1",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeIP(in), in)
	}
}

func TestGetIPOrDefault(t *testing.T) {
	assert.Equal(t, "198.51.100.2", GetIPOrDefault("198.51.100.2", "unknown"))
	assert.Equal(t, "unknown", GetIPOrDefault("not-an-ip", "unknown"))
	assert.Equal(t, "unknown", GetIPOrDefault("", "unknown"))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.True(t, IsValidEmail("a@x.com"))
	assert.False(t, IsValidEmail("Alice <a@x.com>"))
	assert.False(t, IsValidEmail("no-at-sign"))
	assert.False(t, IsValidEmail(""))
}
