package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected bool
	}{
		{"default keyword", "default", true},
		{"extension", "x-custom", true},
		{"wildcard 2XX", "2XX", true},
		{"wildcard 5XX", "5XX", true},
		{"wildcard 0XX", "0XX", false},
		{"wildcard 6XX", "6XX", false},
		{"partial wildcard 20X", "20X", false},
		{"lowercase wildcard", "2xx", false},
		{"valid 100", "100", true},
		{"valid 418", "418", true},
		{"valid 599", "599", true},
		{"below range", "099", false},
		{"above range", "600", false},
		{"too short", "99", false},
		{"too long", "2000", false},
		{"empty", "", false},
		{"space", "2 0", false},
		{"alphanumeric", "2a0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateStatusCode(tt.code))
		})
	}
}

func TestIsStandardStatusCode(t *testing.T) {
	assert.True(t, IsStandardStatusCode("200"))
	assert.True(t, IsStandardStatusCode("418"))
	assert.False(t, IsStandardStatusCode("299"))
	assert.False(t, IsStandardStatusCode("2XX"))
	assert.False(t, IsStandardStatusCode("default"))
}

func TestIsRange(t *testing.T) {
	assert.True(t, IsRange("4XX"))
	assert.False(t, IsRange("400"))
	assert.False(t, IsRange("default"))
}

func TestIsValidMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		expected  bool
	}{
		{"application/json", true},
		{"application/vnd.api+json", true},
		{"text/plain", true},
		{"*/*", true},
		{"application/*", true},
		{"*/json", false},
		{"/*", false},
		{"json", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidMediaType(tt.mediaType))
		})
	}
}
