package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{
			name:     "plain number",
			input:    `{"boxes": 5}`,
			expected: 5,
		},
		{
			name:     "string-encoded number",
			input:    `{"boxes": "12"}`,
			expected: 12,
		},
		{
			name:     "string with whitespace",
			input:    `{"boxes": " 7 "}`,
			expected: 7,
		},
		{
			name:     "null",
			input:    `{"boxes": null}`,
			expected: 0,
		},
		{
			name:     "empty string",
			input:    `{"boxes": ""}`,
			expected: 0,
		},
		{
			name:        "non-numeric string",
			input:       `{"boxes": "five"}`,
			expectError: true,
		},
		{
			name:        "fractional number",
			input:       `{"boxes": 2.5}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Boxes FlexInt `json:"boxes"`
			}
			err := json.Unmarshal([]byte(tt.input), &payload)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, payload.Boxes.Int())
			}
		})
	}
}

func TestFlexInt_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(FlexInt(5))
	assert.NoError(t, err)
	assert.Equal(t, "5", string(data))
}
