package utils

import (
	"testing"
)

func TestCleanJsonBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"path": "data"}`,
			expected: `{"path": "data"}`,
		},
		{
			name:     "JSON in markdown code block",
			input:    "```json\n{\"path\": \"data\"}\n```",
			expected: `{"path": "data"}`,
		},
		{
			name:     "JSON with mixed case",
			input:    "```JSON\n{\"path\": \"data\"}\n```",
			expected: `{"path": "data"}`,
		},
		{
			name:     "only triple backticks",
			input:    "```\ndata[\"features\"]\n```",
			expected: `data["features"]`,
		},
		{
			name:     "extra whitespace",
			input:    "  ```json  \n  {\"path\": \"data\"}  \n  ```  ",
			expected: `{"path": "data"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJsonBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJsonBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "pure JSON",
			input:    `{"path": "data"}`,
			expected: `{"path": "data"}`,
		},
		{
			name:     "JSON with text around",
			input:    "Action input: {\"path\": \"data\"} done",
			expected: `{"path": "data"}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"query": "features.#(name=\"}\")"}`,
			expected: `{"query": "features.#(name=\"}\")"}`,
		},
		{
			name:     "no JSON",
			input:    "Just plain text",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSON(tt.input)
			if result != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than max", "abc", 5, "abc"},
		{"exactly max", "abcde", 5, "abcde"},
		{"longer than max", "abcdef", 5, "abcde..."},
		{"no limit", "abcdef", 0, "abcdef"},
		{"runes not bytes", "ëëëë", 2, "ëë..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("Truncate() = %q, want %q", result, tt.expected)
			}
		})
	}
}
