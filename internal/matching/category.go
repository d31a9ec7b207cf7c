package matching

import "strings"

const (
	categoryMatch    = 100
	categoryFallback = 30
)

// ScoreCategory checks the resume titles and education against the built-in
// keyword table. The result is either 100 or 30.
func ScoreCategory(jobTitles, education []string, category string) float64 {
	return scoreCategory(defaultCategoryKeywords, jobTitles, education, category)
}

func scoreCategory(table map[string][]string, jobTitles, education []string, category string) float64 {
	parts := make([]string, 0, len(jobTitles)+len(education))
	parts = append(parts, jobTitles...)
	parts = append(parts, education...)

	text := strings.ToLower(strings.Join(parts, " "))
	if strings.TrimSpace(text) == "" {
		return categoryFallback
	}

	for _, keyword := range table[strings.ToLower(strings.TrimSpace(category))] {
		if keyword != "" && strings.Contains(text, keyword) {
			return categoryMatch
		}
	}

	return categoryFallback
}
