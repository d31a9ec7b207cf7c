package matching

import (
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
)

const (
	titleBonus          = 5
	specializationBonus = 2
)

// SkillResult is the outcome of matching resume skills against one posting.
type SkillResult struct {
	Score          float64
	MatchingSkills []string
}

// ScoreSkills rates how many resume skills show up in the posting text.
// MatchingSkills keeps the resume spelling and order.
func ScoreSkills(resumeSkills []string, job *jobs.Posting) SkillResult {
	if len(resumeSkills) == 0 {
		return SkillResult{MatchingSkills: []string{}}
	}
	if job == nil {
		job = &jobs.Posting{}
	}

	text := job.SearchText()
	title := strings.ToLower(job.Title)

	matching := make([]string, 0, len(resumeSkills))
	bonus := 0.0

	for _, original := range resumeSkills {
		skill := strings.ToLower(strings.TrimSpace(original))
		if skill == "" || !skillMatches(skill, text) {
			continue
		}

		matching = append(matching, original)

		if strings.Contains(title, skill) {
			bonus += titleBonus
		}
		if len(strings.Fields(skill)) >= 2 {
			bonus += specializationBonus
		}
	}

	score := float64(len(matching))/float64(len(resumeSkills))*100 + bonus

	return SkillResult{Score: min(score, 100), MatchingSkills: matching}
}

// skillMatches is intentionally permissive: multi-word skills only need every
// word somewhere in the text, not adjacent and not in order.
func skillMatches(skill, text string) bool {
	if strings.Contains(text, skill) {
		return true
	}

	words := strings.Fields(skill)
	if len(words) == 1 {
		return hasBoundedWord(text, skill)
	}

	for _, word := range words {
		if !strings.Contains(text, word) {
			return false
		}
	}
	return true
}

func hasBoundedWord(text, word string) bool {
	switch {
	case strings.HasPrefix(text, word+" "), strings.HasSuffix(text, " "+word):
		return true
	case strings.Contains(text, " "+word+" "),
		strings.Contains(text, " "+word+"."),
		strings.Contains(text, " "+word+","):
		return true
	}
	return false
}
