package importer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/fingerprint"
	"github.com/conorfennell/recall/internal/schedule"
)

// Store is the slice of the storage layer the importer needs.
type Store interface {
	Insert(domain.Concept) error
	FindByFingerprint(string) (*domain.Concept, error)
}

// Result summarizes one import run.
type Result struct {
	Parsed   int
	Imported int
	Skipped  int
	Errors   []error
}

// ImportDir walks a local directory, parses every .md file, and inserts
// each entry whose content fingerprint is not already in the store.
// Imported concepts start as New with retention 0 and are due immediately.
func ImportDir(store Store, dir string, now time.Time) Result {
	var res Result

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}

		for _, entry := range entries {
			res.Parsed++
			concept := NewConcept(entry, now)

			existing, findErr := store.FindByFingerprint(fingerprint.Hash(concept))
			if findErr != nil {
				res.Errors = append(res.Errors, fmt.Errorf("fingerprint check for %q: %w", entry.Title, findErr))
				continue
			}
			if existing != nil {
				res.Skipped++
				continue
			}

			slog.Info("New concept found, inserting...", "title", entry.Title, "file", path)
			if insertErr := store.Insert(concept); insertErr != nil {
				res.Errors = append(res.Errors, fmt.Errorf("insert for %q: %w", entry.Title, insertErr))
				continue
			}
			res.Imported++
		}
		return nil
	})

	if walkErr != nil {
		res.Errors = append(res.Errors, fmt.Errorf("walking %s: %w", dir, walkErr))
	}
	return res
}

// NewConcept turns a parsed entry into a fresh concept: retention 0,
// no reviews, status New, due on its creation date.
func NewConcept(entry Entry, now time.Time) domain.Concept {
	return domain.Concept{
		ID:             uuid.NewString(),
		Title:          entry.Title,
		Subject:        entry.Subject,
		Description:    entry.Description,
		Difficulty:     entry.Difficulty,
		RetentionScore: 0,
		NextReviewDate: schedule.Day(now),
		Status:         domain.StatusNew,
	}
}
