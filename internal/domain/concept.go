package domain

import "time"

// Difficulty is the fixed complexity rating assigned to a concept at creation.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty maps free-form input onto a known difficulty,
// defaulting to Medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s)
	}
	return Medium
}

// Status classifies a concept's learning state. It is derived, never set
// directly by the user: New means no completed reviews, Mastered and
// Reviewing are produced by committing a review, and Fading only appears
// in stored data (e.g. the seed collection).
type Status string

const (
	StatusNew       Status = "New"
	StatusReviewing Status = "Reviewing"
	StatusFading    Status = "Fading"
	StatusMastered  Status = "Mastered"
)

// ReviewSession records one completed quiz against a concept. Sessions are
// immutable and append-only; insertion order is chronological order.
type ReviewSession struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Score     int       `json:"score"`     // 0-100
	TimeSpent int       `json:"timeSpent"` // minutes, accepted as reported
}

// Concept is a single unit of study material.
type Concept struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	// RetentionScore is the 0-100 estimate of current recall strength.
	RetentionScore int `json:"retentionScore"`
	// LastReviewed is zero while the concept has never been reviewed.
	LastReviewed   time.Time       `json:"lastReviewed"`
	NextReviewDate time.Time       `json:"nextReviewDate"`
	Status         Status          `json:"status"`
	Reviews        []ReviewSession `json:"reviews"`
}

// NeverReviewed reports whether the concept has no completed reviews yet.
func (c Concept) NeverReviewed() bool {
	return c.LastReviewed.IsZero()
}

// Clone returns a deep copy of the concept. Review commits replace exactly
// one concept in the collection; cloning keeps the replacement from sharing
// the reviews slice with the original.
func (c Concept) Clone() Concept {
	out := c
	out.Reviews = make([]ReviewSession, len(c.Reviews))
	copy(out.Reviews, c.Reviews)
	return out
}

// Question is one multiple-choice quiz item produced by the advisor or its
// offline fallback.
type Question struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// Subjects is the default subject list offered when creating a concept.
// The field itself is open-ended free text.
var Subjects = []string{
	"Physics",
	"Biology",
	"Computer Science",
	"History",
	"Mathematics",
	"Literature",
}
