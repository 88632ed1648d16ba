package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/fingerprint"
	"github.com/conorfennell/recall/internal/schedule"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)

	seed := domain.SeedConcepts()
	for _, c := range seed {
		if err := db.Insert(c); err != nil {
			t.Fatalf("Insert() returned an unexpected error: %v", err)
		}
	}

	loaded, err := db.Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if len(loaded) != len(seed) {
		t.Fatalf("Expected %d concepts, got %d", len(seed), len(loaded))
	}

	for i, c := range loaded {
		// Normalize wall-clock representation before the deep compare; the
		// driver may hand back a different location for the same instant.
		if !timesEqual(c, seed[i]) {
			t.Fatalf("Times differ for concept %s", c.ID)
		}
		c = withTimesFrom(c, seed[i])
		if !reflect.DeepEqual(c, seed[i]) {
			t.Errorf("Concept %d differs after round trip:\nstored: %+v\nloaded: %+v", i, seed[i], c)
		}
	}
}

func timesEqual(a, b domain.Concept) bool {
	if !a.LastReviewed.Equal(b.LastReviewed) || !a.NextReviewDate.Equal(b.NextReviewDate) {
		return false
	}
	if len(a.Reviews) != len(b.Reviews) {
		return false
	}
	for i := range a.Reviews {
		if !a.Reviews[i].Date.Equal(b.Reviews[i].Date) {
			return false
		}
	}
	return true
}

func withTimesFrom(c, src domain.Concept) domain.Concept {
	c.LastReviewed = src.LastReviewed
	c.NextReviewDate = src.NextReviewDate
	for i := range c.Reviews {
		c.Reviews[i].Date = src.Reviews[i].Date
	}
	return c
}

func TestLoadPreservesInsertionOrder(t *testing.T) {
	db := openTestDB(t)

	ids := []string{"z", "a", "m", "b"}
	for _, id := range ids {
		c := domain.Concept{ID: id, Title: id, Subject: "s", Description: "d",
			Difficulty: domain.Easy, Status: domain.StatusNew, NextReviewDate: time.Now()}
		if err := db.Insert(c); err != nil {
			t.Fatalf("Insert(%s) returned an unexpected error: %v", id, err)
		}
	}

	loaded, err := db.Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	for i, id := range ids {
		if loaded[i].ID != id {
			t.Errorf("Position %d = %s, expected %s", i, loaded[i].ID, id)
		}
	}
}

func TestApplyReviewPersistsUpdate(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	c := domain.Concept{ID: "c1", Title: "t", Subject: "s", Description: "d",
		Difficulty: domain.Medium, RetentionScore: 62, Status: domain.StatusFading,
		NextReviewDate: schedule.Day(now)}
	other := domain.Concept{ID: "c2", Title: "other", Subject: "s", Description: "d",
		Difficulty: domain.Easy, RetentionScore: 30, Status: domain.StatusNew,
		NextReviewDate: schedule.Day(now)}
	for _, in := range []domain.Concept{c, other} {
		if err := db.Insert(in); err != nil {
			t.Fatalf("Insert() returned an unexpected error: %v", err)
		}
	}

	updated := schedule.ApplyReview(c, 90, 10, now)
	if err := db.ApplyReview(updated); err != nil {
		t.Fatalf("ApplyReview() returned an unexpected error: %v", err)
	}

	got, err := db.Get("c1")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if got.RetentionScore != 76 {
		t.Errorf("Retention = %d, expected 76", got.RetentionScore)
	}
	if got.Status != domain.StatusReviewing {
		t.Errorf("Status = %s, expected Reviewing", got.Status)
	}
	if len(got.Reviews) != 1 {
		t.Fatalf("Expected 1 persisted review, got %d", len(got.Reviews))
	}

	// The other concept must be untouched.
	gotOther, err := db.Get("c2")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if gotOther.RetentionScore != 30 || gotOther.Status != domain.StatusNew {
		t.Errorf("Unrelated concept changed: %+v", gotOther)
	}
}

func TestApplyReviewUnknownConcept(t *testing.T) {
	db := openTestDB(t)
	c := domain.Concept{ID: "ghost", NextReviewDate: time.Now(),
		Reviews: []domain.ReviewSession{{ID: "r", Date: time.Now(), Score: 50}}}
	if err := db.ApplyReview(c); err == nil {
		t.Error("Expected an error when committing a review for an unknown concept")
	}
}

func TestDeleteIsNoOpForUnknownID(t *testing.T) {
	db := openTestDB(t)

	if err := db.Delete("does-not-exist"); err != nil {
		t.Errorf("Delete of unknown id should be a no-op, got error: %v", err)
	}
}

func TestDeleteRemovesConceptAndReviews(t *testing.T) {
	db := openTestDB(t)

	c := domain.SeedConcepts()[1] // carries two reviews
	if err := db.Insert(c); err != nil {
		t.Fatalf("Insert() returned an unexpected error: %v", err)
	}
	if err := db.Delete(c.ID); err != nil {
		t.Fatalf("Delete() returned an unexpected error: %v", err)
	}

	got, err := db.Get(c.ID)
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if got != nil {
		t.Error("Concept should be gone after delete")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	db := openTestDB(t)

	if err := db.SeedIfEmpty(domain.SeedConcepts()); err != nil {
		t.Fatalf("SeedIfEmpty() returned an unexpected error: %v", err)
	}
	loaded, err := db.Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 seeded concepts, got %d", len(loaded))
	}

	// A second call must not duplicate.
	if err := db.SeedIfEmpty(domain.SeedConcepts()); err != nil {
		t.Fatalf("SeedIfEmpty() returned an unexpected error: %v", err)
	}
	loaded, _ = db.Load()
	if len(loaded) != 3 {
		t.Errorf("Seeding a non-empty collection should be a no-op, got %d concepts", len(loaded))
	}
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	db := openTestDB(t)

	notified := 0
	db.Subscribe(func() { notified++ })

	c := domain.Concept{ID: "c", Title: "t", Subject: "s", Description: "d",
		Difficulty: domain.Easy, Status: domain.StatusNew, NextReviewDate: time.Now()}
	if err := db.Insert(c); err != nil {
		t.Fatalf("Insert() returned an unexpected error: %v", err)
	}
	if notified != 1 {
		t.Errorf("Expected 1 notification after insert, got %d", notified)
	}

	updated := schedule.ApplyReview(c, 70, 10, time.Now())
	if err := db.ApplyReview(updated); err != nil {
		t.Fatalf("ApplyReview() returned an unexpected error: %v", err)
	}
	if notified != 2 {
		t.Errorf("Expected 2 notifications after review, got %d", notified)
	}

	if err := db.Delete("c"); err != nil {
		t.Fatalf("Delete() returned an unexpected error: %v", err)
	}
	if notified != 3 {
		t.Errorf("Expected 3 notifications after delete, got %d", notified)
	}

	// A no-op delete must not notify.
	if err := db.Delete("c"); err != nil {
		t.Fatalf("Delete() returned an unexpected error: %v", err)
	}
	if notified != 3 {
		t.Errorf("No-op delete should not notify, got %d", notified)
	}
}

func TestFindByFingerprint(t *testing.T) {
	db := openTestDB(t)

	c := domain.Concept{ID: "c", Title: "Photosynthesis", Subject: "Biology",
		Description: "Plants making food from light.", Difficulty: domain.Medium,
		Status: domain.StatusNew, NextReviewDate: time.Now()}
	if err := db.Insert(c); err != nil {
		t.Fatalf("Insert() returned an unexpected error: %v", err)
	}

	found, err := db.FindByFingerprint(fingerprint.Hash(c))
	if err != nil {
		t.Fatalf("FindByFingerprint() returned an unexpected error: %v", err)
	}
	if found == nil || found.ID != "c" {
		t.Errorf("Expected to find concept c, got %+v", found)
	}

	missing, err := db.FindByFingerprint("no-such-fingerprint")
	if err != nil {
		t.Fatalf("FindByFingerprint() returned an unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown fingerprint, got %+v", missing)
	}
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	value, err := db.GetSetting("api_key")
	if err != nil {
		t.Fatalf("GetSetting() returned an unexpected error: %v", err)
	}
	if value != "" {
		t.Errorf("Absent setting should read as empty, got %q", value)
	}

	if err := db.SetSetting("api_key", "sk-test"); err != nil {
		t.Fatalf("SetSetting() returned an unexpected error: %v", err)
	}
	if err := db.SetSetting("api_key", "sk-test-2"); err != nil {
		t.Fatalf("SetSetting() overwrite returned an unexpected error: %v", err)
	}

	value, err = db.GetSetting("api_key")
	if err != nil {
		t.Fatalf("GetSetting() returned an unexpected error: %v", err)
	}
	if value != "sk-test-2" {
		t.Errorf("Expected latest value, got %q", value)
	}
}

func TestMustOpenFallsBackToMemory(t *testing.T) {
	// A directory path is not a usable database file.
	db := MustOpen(t.TempDir())
	defer db.Close()

	if err := db.SeedIfEmpty(domain.SeedConcepts()); err != nil {
		t.Fatalf("Fallback database should be fully usable, got: %v", err)
	}
	loaded, err := db.Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if len(loaded) != 3 {
		t.Errorf("Expected seeded fallback collection, got %d concepts", len(loaded))
	}
}
