package importer

import (
	"strings"
	"testing"

	"github.com/conorfennell/recall/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		expectedEntries int
		expectedTitle   string
		expectedSubject string
		expectedDesc    string
		expectedLevel   domain.Difficulty
	}{
		{
			name:            "Simple entry",
			input:           "T: Newton's Third Law\nS: Physics\nD: Every action has an equal and opposite reaction.\nL: Easy",
			expectedEntries: 1,
			expectedTitle:   "Newton's Third Law",
			expectedSubject: "Physics",
			expectedDesc:    "Every action has an equal and opposite reaction.",
			expectedLevel:   domain.Easy,
		},
		{
			name: "Multiline description",
			input: `
T: Photosynthesis
S: Biology
D: Plants use sunlight
to synthesize foods
from carbon dioxide and water.
`,
			expectedEntries: 1,
			expectedTitle:   "Photosynthesis",
			expectedSubject: "Biology",
			expectedDesc:    "Plants use sunlight\nto synthesize foods\nfrom carbon dioxide and water.",
			expectedLevel:   domain.Medium,
		},
		{
			name: "Two entries with separator",
			input: `
T: First concept
D: First description
---
T: Second concept
D: Second description
`,
			expectedEntries: 2,
		},
		{
			name: "Two entries without separator",
			input: `
T: First concept
D: First description
T: Second concept
D: Second description
`,
			expectedEntries: 2,
		},
		{
			name:            "Missing level defaults to Medium",
			input:           "T: Binary Search\nS: Computer Science\nD: Halve the search space each step.",
			expectedEntries: 1,
			expectedTitle:   "Binary Search",
			expectedSubject: "Computer Science",
			expectedDesc:    "Halve the search space each step.",
			expectedLevel:   domain.Medium,
		},
		{
			name:            "Unknown level defaults to Medium",
			input:           "T: Entropy\nL: Brutal",
			expectedEntries: 1,
			expectedTitle:   "Entropy",
			expectedLevel:   domain.Medium,
		},
		{
			name:            "No entries, just text",
			input:           "This is a file with no concepts.",
			expectedEntries: 0,
		},
		{
			name:            "Prefixes with no space",
			input:           "T:Entropy\nS:Physics",
			expectedEntries: 1,
			expectedTitle:   "Entropy",
			expectedSubject: "Physics",
			expectedLevel:   domain.Medium,
		},
		{
			name:            "Block without a title is dropped",
			input:           "S: Physics\nD: Orphaned description\n---",
			expectedEntries: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			entries, err := Parse(r)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedEntries {
				t.Fatalf("Expected %d entries, but got %d", tc.expectedEntries, len(entries))
			}

			if tc.expectedEntries == 1 {
				entry := entries[0]
				if entry.Title != tc.expectedTitle {
					t.Errorf("Expected Title to be '%s', but got '%s'", tc.expectedTitle, entry.Title)
				}
				if entry.Subject != tc.expectedSubject {
					t.Errorf("Expected Subject to be '%s', but got '%s'", tc.expectedSubject, entry.Subject)
				}
				if entry.Description != tc.expectedDesc {
					t.Errorf("Expected Description to be '%s', but got '%s'", tc.expectedDesc, entry.Description)
				}
				if entry.Difficulty != tc.expectedLevel {
					t.Errorf("Expected Difficulty to be '%s', but got '%s'", tc.expectedLevel, entry.Difficulty)
				}
			}
		})
	}
}
