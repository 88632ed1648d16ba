// Package analytics derives the dashboard and report views from the concept
// collection. Everything here is a pure projection of the collection passed
// in: no accumulator state, no mutation of the input.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/schedule"
)

// Summary holds the headline dashboard numbers.
type Summary struct {
	Total        int
	AvgRetention int
	DueToday     int
	Streak       int
}

// Summarize computes the headline stats as of the given moment. The streak
// is an externally tracked consecutive-days counter and is passed through
// untouched. An empty collection yields explicit zeros.
func Summarize(concepts []domain.Concept, streak int, asOf time.Time) Summary {
	s := Summary{Total: len(concepts), Streak: streak}
	if len(concepts) == 0 {
		return s
	}

	sum := 0
	for _, c := range concepts {
		sum += c.RetentionScore
		if schedule.IsDue(c, asOf) {
			s.DueToday++
		}
	}
	s.AvgRetention = int(math.Round(float64(sum) / float64(len(concepts))))
	return s
}

// TrendPoint is one day of the weekly retention trend.
type TrendPoint struct {
	Label string
	Score int
}

// WeeklyTrend reports the mean review score for each of the trailing seven
// calendar days, oldest first. For a day, each concept with at least one
// review contributes the mean of its reviews on that date, and the day's
// score is the mean across contributing concepts. Days with no reviews
// report an explicit 0. The final point is labeled "Today"; earlier points
// carry the short weekday name.
func WeeklyTrend(concepts []domain.Concept, asOf time.Time) []TrendPoint {
	today := schedule.Day(asOf)
	points := make([]TrendPoint, 0, 7)

	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)

		daySum := 0.0
		contributing := 0
		for _, c := range concepts {
			scoreSum, n := 0, 0
			for _, r := range c.Reviews {
				if schedule.Day(r.Date).Equal(day) {
					scoreSum += r.Score
					n++
				}
			}
			if n > 0 {
				daySum += float64(scoreSum) / float64(n)
				contributing++
			}
		}

		p := TrendPoint{Label: day.Format("Mon")}
		if i == 0 {
			p.Label = "Today"
		}
		if contributing > 0 {
			p.Score = int(math.Round(daySum / float64(contributing)))
		}
		points = append(points, p)
	}
	return points
}

// NeedsAttention returns the three weakest concepts with retention below 80,
// worst first. Equal scores keep their original collection order.
func NeedsAttention(concepts []domain.Concept) []domain.Concept {
	var weak []domain.Concept
	for _, c := range concepts {
		if c.RetentionScore < 80 {
			weak = append(weak, c)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].RetentionScore < weak[j].RetentionScore
	})
	if len(weak) > 3 {
		weak = weak[:3]
	}
	return weak
}

// SubjectCount is one bar of the subject distribution.
type SubjectCount struct {
	Subject string
	Count   int
}

// SubjectDistribution counts concepts per subject, preserving the order in
// which each subject first appears in the collection.
func SubjectDistribution(concepts []domain.Concept) []SubjectCount {
	index := make(map[string]int)
	var out []SubjectCount
	for _, c := range concepts {
		if i, ok := index[c.Subject]; ok {
			out[i].Count++
			continue
		}
		index[c.Subject] = len(out)
		out = append(out, SubjectCount{Subject: c.Subject, Count: 1})
	}
	return out
}

// Leaderboard returns the collection ordered by descending retention score.
// Ties keep original order and the input slice is left as-is.
func Leaderboard(concepts []domain.Concept) []domain.Concept {
	ranked := make([]domain.Concept, len(concepts))
	copy(ranked, concepts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RetentionScore > ranked[j].RetentionScore
	})
	return ranked
}
