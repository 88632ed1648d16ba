package storage

const schema = `
-- The 'concepts' table holds one row per unit of study material.
-- rowid order is insertion order; the stable sorts in the analytics views
-- depend on loading rows back in that order.
CREATE TABLE IF NOT EXISTS concepts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    subject TEXT NOT NULL,
    description TEXT NOT NULL,
    difficulty TEXT NOT NULL,
    retention_score INTEGER NOT NULL DEFAULT 0,
    last_reviewed DATETIME,
    next_review_date DATETIME NOT NULL,
    status TEXT NOT NULL DEFAULT 'New',
    fingerprint TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_concepts_fingerprint ON concepts(fingerprint);

-- The 'reviews' table is append-only: rows are never updated, and only
-- deleted together with their concept. rowid order is chronological order.
CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    concept_id TEXT NOT NULL,
    review_date DATETIME NOT NULL,
    score INTEGER NOT NULL,
    time_spent INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(concept_id) REFERENCES concepts(id)
);

CREATE INDEX IF NOT EXISTS idx_reviews_concept ON reviews(concept_id);

-- The 'settings' table is a small key-value store for things like the
-- advisor API key. Core features keep working when a key is absent.
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
