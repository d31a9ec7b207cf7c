package matching

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
)

const (
	perfectFit     = 100
	overqualified  = 80
	levelMismatch  = 70
	neutralScore   = 50
	defaultSpan    = 5
	juniorMaxYears = 2
	midMinYears    = 2
	midMaxYears    = 5
	seniorMinYears = 5
)

// Matches "3 years", "3-5 years", "3 to 5 years", "5+ years".
var yearsPattern = regexp.MustCompile(`(\d+)\s*(?:(?:-|to)\s*(\d+))?\s*\+?\s*years?`)

// YearsRange is an experience requirement found in free text.
type YearsRange struct {
	Min float64
	Max float64
}

// ExtractYears returns the first years requirement in text. When only one
// bound is written the upper bound is Min+5.
func ExtractYears(text string) (YearsRange, bool) {
	m := yearsPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return YearsRange{}, false
	}

	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return YearsRange{}, false
	}

	hi := lo + defaultSpan
	if m[2] != "" {
		if v, err := strconv.Atoi(m[2]); err == nil {
			hi = v
		}
	}

	return YearsRange{Min: float64(lo), Max: float64(hi)}, true
}

// ScoreExperience rates the candidate's years against the posting. An
// explicit range in the text wins over the experience level keyword.
func ScoreExperience(candidateYears float64, job *jobs.Posting) float64 {
	if job == nil {
		return neutralScore
	}
	candidateYears = max(candidateYears, 0)

	if r, ok := ExtractYears(job.Description + " " + job.Requirements); ok {
		switch {
		case candidateYears >= r.Min && candidateYears <= r.Max:
			return perfectFit
		case candidateYears > r.Max:
			return overqualified
		default:
			return max(0, candidateYears/r.Min*100)
		}
	}

	level := strings.ToLower(job.ExperienceLevel)
	switch {
	case strings.Contains(level, "entry"), strings.Contains(level, "junior"):
		if candidateYears <= juniorMaxYears {
			return perfectFit
		}
		return levelMismatch
	case strings.Contains(level, "mid"), strings.Contains(level, "intermediate"):
		if candidateYears >= midMinYears && candidateYears <= midMaxYears {
			return perfectFit
		}
		return levelMismatch
	case strings.Contains(level, "senior"):
		if candidateYears >= seniorMinYears {
			return perfectFit
		}
		return levelMismatch
	}

	return neutralScore
}
