package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/utils"
)

const (
	outputTable = "table"
	outputJSON  = "json"

	maxTitleLength  = 48
	maxReasonLength = 80
)

// result is a scored job as printed by the match command.
type result struct {
	job    matching.ScoredJob
	review *ai.FitAssessment
}

func (r result) MarshalJSON() ([]byte, error) {
	encoded, err := json.Marshal(r.job)
	if err != nil {
		return nil, err
	}
	if r.review == nil {
		return encoded, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, err
	}
	review, err := json.Marshal(r.review)
	if err != nil {
		return nil, fmt.Errorf("encode ai review: %w", err)
	}
	fields["aiReview"] = review

	return json.Marshal(fields)
}

func buildResults(scored []matching.ScoredJob, reviews map[string]*ai.FitAssessment) []result {
	results := make([]result, 0, len(scored))
	for i := range scored {
		results = append(results, result{job: scored[i], review: reviews[ai.Key(&scored[i], i)]})
	}
	return results
}

func toPostings(results []result) *jobs.Postings {
	postings := &jobs.Postings{Items: make([]*jobs.Posting, 0, len(results))}
	for i := range results {
		posting := results[i].job.Posting.Clone()
		postings.Items = append(postings.Items, &posting)
	}
	return postings
}

func writeResults(w io.Writer, format string, results []result) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case outputTable, "":
		return writeTable(w, results)
	default:
		return fmt.Errorf("unknown output format %q (use %s or %s)", format, outputTable, outputJSON)
	}
}

func writeTable(w io.Writer, results []result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	withReview := false
	for _, r := range results {
		if r.review != nil {
			withReview = true
			break
		}
	}

	header := "#\tSCORE\tQUALITY\tID\tTITLE\tCATEGORY\tREASON"
	if withReview {
		header += "\tAI"
	}
	fmt.Fprintln(tw, header)

	for i, r := range results {
		row := fmt.Sprintf("%d\t%d\t%s\t%s\t%s\t%s\t%s",
			i+1,
			r.job.MatchScore,
			matching.Quality(r.job.MatchScore),
			dash(r.job.ID),
			dash(utils.TruncateForLog(r.job.Title, maxTitleLength)),
			dash(r.job.Category),
			utils.TruncateForLog(r.job.MatchReason, maxReasonLength),
		)
		if withReview {
			row += "\t" + reviewSummary(r.review)
		}
		fmt.Fprintln(tw, row)
	}

	return tw.Flush()
}

func reviewSummary(review *ai.FitAssessment) string {
	switch {
	case review == nil:
		return "-"
	case review.Error != "":
		return "error"
	case review.Fit:
		return fmt.Sprintf("fit %.2f", review.Score)
	default:
		return fmt.Sprintf("no fit %.2f", review.Score)
	}
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
