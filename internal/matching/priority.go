package matching

import "github.com/spigell/job-matcher/internal/jobs"

const flagBonus = 50

func ScorePriority(job *jobs.Posting) float64 {
	if job == nil {
		return 0
	}

	score := 0.0
	if job.Urgent {
		score += flagBonus
	}
	if job.Featured {
		score += flagBonus
	}
	return min(score, 100)
}
