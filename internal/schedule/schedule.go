package schedule

import (
	"math"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/google/uuid"
)

// Interval maps a just-earned quiz score to the number of days until the
// next review. Both band boundaries are strict: a score of exactly 80 falls
// to the 7-day band and exactly 50 to the 2-day band.
func Interval(score int) int {
	switch {
	case score > 80:
		return 14
	case score > 50:
		return 7
	default:
		return 2
	}
}

// Day truncates a moment to its calendar date. All scheduling comparisons
// are midnight-anchored; time of day never matters.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsDue reports whether the concept's next review date has arrived as of
// the given moment. A never-reviewed concept carries its creation date and
// is due immediately.
func IsDue(c domain.Concept, asOf time.Time) bool {
	return !Day(c.NextReviewDate).After(Day(asOf))
}

// ClampScore forces a quiz score into [0,100]. Out-of-range input is
// tolerated here so it can never reach persisted state.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ApplyReview commits a completed quiz against a concept and returns the
// updated concept. The input concept is left untouched.
//
// The new retention score blends only the prior score with the quiz score:
// round((retention + quiz) / 2). This single-step update deliberately
// discards older history; it mirrors the product's behavior and is not an
// oversight.
//
// Note the two distinct inputs downstream: the next review interval is
// chosen from the raw quiz score, while the status classification uses the
// blended retention score.
func ApplyReview(c domain.Concept, quizScore, timeSpent int, now time.Time) domain.Concept {
	quizScore = ClampScore(quizScore)
	today := Day(now)

	updated := c.Clone()
	updated.RetentionScore = blend(c.RetentionScore, quizScore)
	updated.LastReviewed = today
	updated.NextReviewDate = today.AddDate(0, 0, Interval(quizScore))
	if updated.RetentionScore > 80 {
		updated.Status = domain.StatusMastered
	} else {
		updated.Status = domain.StatusReviewing
	}
	updated.Reviews = append(updated.Reviews, domain.ReviewSession{
		ID:        uuid.NewString(),
		Date:      today,
		Score:     quizScore,
		TimeSpent: timeSpent,
	})
	return updated
}

// blend averages the prior retention score with the quiz score, rounding
// half up and capping at 100.
func blend(retention, quiz int) int {
	score := int(math.Round(float64(retention+quiz) / 2))
	if score > 100 {
		return 100
	}
	return score
}
