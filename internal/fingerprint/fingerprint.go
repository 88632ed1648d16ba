package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

// Normalize concatenates the concept's identifying content after cleaning
// each part. It trims whitespace, lowercases, and normalizes line endings
// for each field before joining them.
func Normalize(c domain.Concept) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	t := normalizePart(c.Title)
	s := normalizePart(c.Subject)
	d := normalizePart(c.Description)

	// We join with a newline to ensure separation between fields,
	// preventing accidental joining of words. e.g. "title" and "subject"
	// becoming "titlesubject".
	return strings.Join([]string{t, s, d}, "\n")
}

// Hash takes a concept, normalizes its content, and returns its SHA-256
// hash as a hex string. Scores, dates and difficulty are deliberately
// excluded: two concepts teaching the same material share a fingerprint
// regardless of review progress.
func Hash(c domain.Concept) string {
	normalized := Normalize(c)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
