package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhones(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "local form rewritten to international",
			input:    "0772123456",
			expected: "+256772123456",
		},
		{
			name:     "canonical international passes through",
			input:    "+256772123456",
			expected: "+256772123456",
		},
		{
			name:     "bare country code gains plus",
			input:    "256772123456",
			expected: "+256772123456",
		},
		{
			name:     "comma-separated mixed forms",
			input:    "0772123456, 256701987654,+256772000111",
			expected: "+256772123456,+256701987654,+256772000111",
		},
		{
			name:     "duplicates collapse after normalization",
			input:    "0772123456,+256772123456,256772123456",
			expected: "+256772123456",
		},
		{
			name:     "unrecognized token passes through as-is",
			input:    "not-a-number",
			expected: "not-a-number",
		},
		{
			name:     "unrecognized mixed with valid",
			input:    "0772123456,landline-041",
			expected: "+256772123456,landline-041",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace and empty tokens dropped",
			input:    " , 0772123456 , ",
			expected: "+256772123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhones(tt.input))
		})
	}
}

func TestNormalizePhones_Idempotent(t *testing.T) {
	inputs := []string{
		"0772123456",
		"+256772123456",
		"256772123456,0701987654",
		"garbage,0772123456",
		"",
		"07721",
	}

	for _, input := range inputs {
		once := NormalizePhones(input)
		twice := NormalizePhones(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", input)
	}
}

func TestNormalizePhones_Total(t *testing.T) {
	// Every input produces some output string without panicking
	inputs := []string{"", ",,,", "++++", "abc,def", "0", "07", "+2567"}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_ = NormalizePhones(input)
		})
	}
}

func TestIsPlausiblePhone(t *testing.T) {
	assert.True(t, IsPlausiblePhone("0772123456"))
	assert.True(t, IsPlausiblePhone("+256772123456"))
	assert.True(t, IsPlausiblePhone("256772123456"))
	assert.True(t, IsPlausiblePhone(" 0772123456 "))
	assert.False(t, IsPlausiblePhone("12345"))
	assert.False(t, IsPlausiblePhone("not-a-number"))
	assert.False(t, IsPlausiblePhone(""))
}
