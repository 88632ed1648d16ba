package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/fingerprint"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database connection holding the concept collection.
// Every successful mutation notifies the subscribed listeners so derived
// views can recompute against the new collection.
type DB struct {
	conn *sql.DB

	mu        sync.Mutex
	listeners []func()
}

// Open creates a new database connection and ensures the schema is up to
// date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers anyway, and with an in-memory dsn every
	// pooled connection would get its own empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// MustOpen opens the database at dsn, falling back to an in-memory database
// when the file is unreadable or corrupt. Startup never fails on bad
// persisted state; the learner just starts from the seed collection.
func MustOpen(dsn string) *DB {
	db, err := Open(dsn)
	if err == nil {
		return db
	}
	slog.Warn("Persisted state unusable, continuing in memory", "dsn", dsn, "error", err)

	db, err = Open(":memory:")
	if err != nil {
		// The in-memory driver only fails if the build itself is broken.
		panic(fmt.Sprintf("failed to open in-memory database: %v", err))
	}
	return db
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Subscribe registers a callback invoked after every successful mutation of
// the concept collection.
func (db *DB) Subscribe(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.listeners = append(db.listeners, fn)
}

func (db *DB) notify() {
	db.mu.Lock()
	listeners := make([]func(), len(db.listeners))
	copy(listeners, db.listeners)
	db.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// SeedIfEmpty inserts the given concepts when the collection has no rows,
// e.g. on first run or after falling back to an in-memory database.
func (db *DB) SeedIfEmpty(concepts []domain.Concept) error {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM concepts`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count concepts: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, c := range concepts {
		if err := db.Insert(c); err != nil {
			return err
		}
	}
	return nil
}

// Insert adds a new concept, with any review history it carries, to the
// collection.
func (db *DB) Insert(c domain.Concept) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin insert for concept %s: %w", c.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO concepts (id, title, subject, description, difficulty,
			retention_score, last_reviewed, next_review_date, status, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.Title,
		c.Subject,
		c.Description,
		string(c.Difficulty),
		c.RetentionScore,
		nullableTime(c.LastReviewed),
		c.NextReviewDate,
		string(c.Status),
		fingerprint.Hash(c),
	)
	if err != nil {
		return fmt.Errorf("failed to insert concept %s: %w", c.ID, err)
	}

	for _, r := range c.Reviews {
		if err := insertReview(tx, c.ID, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert for concept %s: %w", c.ID, err)
	}
	db.notify()
	return nil
}

// ApplyReview replaces one concept with its post-review state and appends
// the newly completed session. All other concepts are untouched. The
// updated concept is expected to carry the new session as its final review.
func (db *DB) ApplyReview(c domain.Concept) error {
	if len(c.Reviews) == 0 {
		return fmt.Errorf("concept %s has no review session to append", c.ID)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin review commit for concept %s: %w", c.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE concepts
		SET retention_score = ?, last_reviewed = ?, next_review_date = ?, status = ?
		WHERE id = ?
	`,
		c.RetentionScore,
		nullableTime(c.LastReviewed),
		c.NextReviewDate,
		string(c.Status),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update concept %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("concept %s not found", c.ID)
	}

	if err := insertReview(tx, c.ID, c.Reviews[len(c.Reviews)-1]); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for concept %s: %w", c.ID, err)
	}
	db.notify()
	return nil
}

func insertReview(tx *sql.Tx, conceptID string, r domain.ReviewSession) error {
	_, err := tx.Exec(`
		INSERT INTO reviews (id, concept_id, review_date, score, time_spent)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, conceptID, r.Date, r.Score, r.TimeSpent)
	if err != nil {
		return fmt.Errorf("failed to insert review %s for concept %s: %w", r.ID, conceptID, err)
	}
	return nil
}

// Delete removes a concept and its review history. Deleting an id that does
// not exist is a no-op, not an error.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete for concept %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reviews WHERE concept_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reviews for concept %s: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM concepts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete concept %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for concept %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete for concept %s: %w", id, err)
	}
	if n > 0 {
		db.notify()
	}
	return nil
}

// Get retrieves one concept with its review history, or nil when absent.
func (db *DB) Get(id string) (*domain.Concept, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, subject, description, difficulty,
			retention_score, last_reviewed, next_review_date, status
		FROM concepts WHERE id = ?
	`, id)

	c, err := scanConcept(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find concept %s: %w", id, err)
	}

	if err := db.attachReviews(map[string]*domain.Concept{c.ID: c}); err != nil {
		return nil, err
	}
	return c, nil
}

// FindByFingerprint retrieves the first concept whose content fingerprint
// matches, or nil. The importer uses this to skip already-known material.
func (db *DB) FindByFingerprint(fp string) (*domain.Concept, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, subject, description, difficulty,
			retention_score, last_reviewed, next_review_date, status
		FROM concepts WHERE fingerprint = ? ORDER BY rowid LIMIT 1
	`, fp)

	c, err := scanConcept(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find concept by fingerprint: %w", err)
	}
	return c, nil
}

// Load returns the whole collection in insertion order, each concept with
// its reviews in chronological order.
func (db *DB) Load() ([]domain.Concept, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, subject, description, difficulty,
			retention_score, last_reviewed, next_review_date, status
		FROM concepts ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}
	defer rows.Close()

	var concepts []domain.Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan concept row: %w", err)
		}
		concepts = append(concepts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate concept rows: %w", err)
	}

	// Build the index only once the slice has stopped growing; appends
	// above may move the backing array.
	byID := make(map[string]*domain.Concept, len(concepts))
	for i := range concepts {
		byID[concepts[i].ID] = &concepts[i]
	}

	if err := db.attachReviews(byID); err != nil {
		return nil, err
	}
	return concepts, nil
}

func (db *DB) attachReviews(byID map[string]*domain.Concept) error {
	if len(byID) == 0 {
		return nil
	}

	rows, err := db.conn.Query(`
		SELECT id, concept_id, review_date, score, time_spent
		FROM reviews ORDER BY rowid
	`)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r         domain.ReviewSession
			conceptID string
		)
		if err := rows.Scan(&r.ID, &conceptID, &r.Date, &r.Score, &r.TimeSpent); err != nil {
			return fmt.Errorf("failed to scan review row: %w", err)
		}
		if c, ok := byID[conceptID]; ok {
			c.Reviews = append(c.Reviews, r)
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConcept(row scanner) (*domain.Concept, error) {
	var (
		c            domain.Concept
		difficulty   string
		status       string
		lastReviewed sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Subject,
		&c.Description,
		&difficulty,
		&c.RetentionScore,
		&lastReviewed,
		&c.NextReviewDate,
		&status,
	)
	if err != nil {
		return nil, err
	}
	c.Difficulty = domain.Difficulty(difficulty)
	c.Status = domain.Status(status)
	if lastReviewed.Valid {
		c.LastReviewed = lastReviewed.Time
	}
	return &c, nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// GetSetting returns the stored value for key, or "" when absent.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a value under key, replacing any previous value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
