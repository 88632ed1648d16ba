package domain

import "time"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeedConcepts returns the built-in starter collection used when no valid
// persisted state exists.
func SeedConcepts() []Concept {
	return []Concept{
		{
			ID:             "1",
			Title:          "Newton's Third Law",
			Subject:        "Physics",
			Description:    "For every action, there is an equal and opposite reaction.",
			Difficulty:     Easy,
			RetentionScore: 85,
			LastReviewed:   date(2023, time.October, 25),
			NextReviewDate: date(2023, time.November, 15),
			Status:         StatusMastered,
			Reviews: []ReviewSession{
				{ID: "r1", Date: date(2023, time.October, 25), Score: 90, TimeSpent: 10},
			},
		},
		{
			ID:             "2",
			Title:          "Photosynthesis",
			Subject:        "Biology",
			Description:    "The process by which green plants and some other organisms use sunlight to synthesize foods from carbon dioxide and water.",
			Difficulty:     Medium,
			RetentionScore: 62,
			LastReviewed:   date(2023, time.October, 20),
			NextReviewDate: date(2023, time.October, 28),
			Status:         StatusFading,
			Reviews: []ReviewSession{
				{ID: "r2", Date: date(2023, time.October, 10), Score: 80, TimeSpent: 15},
				{ID: "r3", Date: date(2023, time.October, 20), Score: 45, TimeSpent: 20},
			},
		},
		{
			ID:             "3",
			Title:          "Binary Search Algorithm",
			Subject:        "Computer Science",
			Description:    "An efficient algorithm for finding an item from a sorted list of items.",
			Difficulty:     Hard,
			RetentionScore: 78,
			LastReviewed:   date(2023, time.October, 27),
			NextReviewDate: date(2023, time.November, 1),
			Status:         StatusReviewing,
			Reviews: []ReviewSession{
				{ID: "r4", Date: date(2023, time.October, 27), Score: 85, TimeSpent: 30},
			},
		},
	}
}
