package matching

import (
	"fmt"
	"strings"
)

const defaultReason = "Good match based on your profile"

// Explain builds the human readable summary attached to every scored job.
func Explain(skillScore, experienceScore, categoryScore float64, matchingSkills []string) string {
	var clauses []string

	n := len(matchingSkills)
	switch {
	case skillScore >= 80:
		clauses = append(clauses, fmt.Sprintf("Excellent skill match: %d skills align with requirements", n))
	case skillScore >= 60:
		clauses = append(clauses, fmt.Sprintf("Strong skill match: %d relevant skills found", n))
	case skillScore >= 40:
		clauses = append(clauses, fmt.Sprintf("Partial skill match: %d skills match", n))
	}

	switch {
	case experienceScore == 100:
		clauses = append(clauses, "Your experience level perfectly matches")
	case experienceScore >= 80:
		clauses = append(clauses, "Your experience is a good fit")
	case experienceScore < 40:
		clauses = append(clauses, "Consider growing your experience for this role")
	}

	if categoryScore == 100 {
		clauses = append(clauses, "Job category aligns with your background")
	}

	if len(clauses) == 0 {
		return defaultReason
	}
	return strings.Join(clauses, ". ")
}

// Quality buckets a match score for display.
func Quality(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Strong"
	case score >= 40:
		return "Good"
	case score >= 20:
		return "Fair"
	default:
		return "Limited"
	}
}
