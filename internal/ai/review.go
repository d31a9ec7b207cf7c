package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/resume"
)

// FitAssessment is a second opinion on a scored job. It never changes the match score.
type FitAssessment struct {
	Fit    bool    `json:"fit"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
	Raw    string  `json:"-"`
	Error  string  `json:"error,omitempty"`
}

type Reviewer interface {
	Review(ctx context.Context, profile *resume.Profile, job *matching.ScoredJob) (*FitAssessment, error)
}

// Key identifies a scored job in the assessments map.
func Key(job *matching.ScoredJob, idx int) string {
	if job.ID != "" {
		return job.ID
	}
	return fmt.Sprintf("#%d", idx+1)
}

// ReviewTop asks reviewer about the first top jobs. A failed review is
// recorded on the assessment and does not stop the others; a done ctx does.
func ReviewTop(ctx context.Context, log *zap.Logger, reviewer Reviewer, profile *resume.Profile, scored []matching.ScoredJob, top int) map[string]*FitAssessment {
	log = logger.WithFields(log)
	assessments := make(map[string]*FitAssessment)
	if reviewer == nil || top <= 0 {
		return assessments
	}

	for i := range scored[:min(top, len(scored))] {
		if ctx.Err() != nil {
			log.Warn("ai review interrupted", zap.Error(ctx.Err()), zap.Int("reviewed", i))
			break
		}

		job := &scored[i]
		key := Key(job, i)
		jobLog := logger.WithFields(log, logger.JobFields(job.ID, job.Category)...)

		assessment, err := reviewer.Review(ctx, profile, job)
		if err != nil {
			jobLog.Warn("ai review failed", zap.Error(err))
			assessments[key] = &FitAssessment{Error: err.Error()}
			continue
		}

		jobLog.Info("ai review completed",
			zap.Bool("fit", assessment.Fit),
			zap.Float64("ai_score", assessment.Score),
			zap.Int("match_score", job.MatchScore),
		)
		assessments[key] = assessment
	}

	return assessments
}
