package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "mixed case duplicates collapse",
			input:    []string{"0xABC", "0xabc", "0xdef"},
			expected: []string{"0xabc", "0xdef"},
		},
		{
			name:     "whitespace and empties dropped",
			input:    []string{" 0xabc ", "", "   ", "0xdef"},
			expected: []string{"0xabc", "0xdef"},
		},
		{
			name:     "order preserved",
			input:    []string{"c", "a", "b", "a"},
			expected: []string{"c", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
