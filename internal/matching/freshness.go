package matching

import "time"

const day = 24 * time.Hour

var freshnessTiers = []struct {
	maxDays int
	score   float64
}{
	{7, 100},
	{30, 70},
	{90, 40},
}

const staleScore = 10

// ScoreFreshness favours recent postings. Age is counted in whole days and
// every cutoff is inclusive. A missing timestamp is neutral.
func ScoreFreshness(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return neutralScore
	}

	days := max(int(now.Sub(*createdAt)/day), 0)
	for _, tier := range freshnessTiers {
		if days <= tier.maxDays {
			return tier.score
		}
	}
	return staleScore
}
