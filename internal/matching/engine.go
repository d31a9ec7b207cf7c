package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/resume"
)

// Breakdown holds the component scores that make up a match score.
type Breakdown struct {
	Skill      float64 `json:"skill"`
	Experience float64 `json:"experience"`
	Category   float64 `json:"category"`
	Freshness  float64 `json:"freshness"`
	Priority   float64 `json:"priority"`
}

// ScoredJob is a copy of a posting with its match results attached.
type ScoredJob struct {
	jobs.Posting

	MatchScore     int
	MatchingSkills []string
	MatchReason    string
	Breakdown      Breakdown
}

// MarshalJSON renders the posting object with matchScore, matchingSkills and matchReason added.
func (s ScoredJob) MarshalJSON() ([]byte, error) {
	fields, err := s.Posting.Fields()
	if err != nil {
		return nil, err
	}

	extra := map[string]any{
		"matchScore":     s.MatchScore,
		"matchingSkills": s.MatchingSkills,
		"matchReason":    s.MatchReason,
	}
	for key, value := range extra {
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		fields[key] = b
	}

	return json.Marshal(fields)
}

// Engine ranks postings against a resume profile.
type Engine struct {
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

// New builds an Engine from cfg. Options are applied after cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	e.cfg.CategoryKeywords = normalizeKeywords(cfg.CategoryKeywords)
	if cfg.CategoryKeywords == nil {
		e.cfg.CategoryKeywords = DefaultCategoryKeywords()
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// MatchJobs ranks jobs with the default configuration.
func MatchJobs(profile *resume.Profile, postings []*jobs.Posting) []ScoredJob {
	e, err := New(DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("default matching config is invalid: %v", err))
	}

	// The context is never cancelled, so Match cannot fail.
	scored, _ := e.Match(context.Background(), profile, postings)
	return scored
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.CategoryKeywords = copyKeywords(e.cfg.CategoryKeywords)
	return cfg
}

// ScoreCategory is ScoreCategory using the engine keyword table.
func (e *Engine) ScoreCategory(jobTitles, education []string, category string) float64 {
	return scoreCategory(e.cfg.CategoryKeywords, jobTitles, education, category)
}

// Match scores every posting, sorts them by score and keeps the high quality
// ones, or the top FallbackLimit when none reaches the threshold. The input
// postings are never modified. An error is returned only when ctx is done.
func (e *Engine) Match(ctx context.Context, profile *resume.Profile, postings []*jobs.Posting) ([]ScoredJob, error) {
	postings = slices.DeleteFunc(slices.Clone(postings), func(p *jobs.Posting) bool { return p == nil })
	if len(postings) == 0 {
		return []ScoredJob{}, nil
	}
	if profile == nil {
		profile = &resume.Profile{}
	}

	scored := make([]ScoredJob, len(postings))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i, posting := range postings {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			scored[i] = e.Score(profile, posting)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("match jobs: %w", err)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].MatchScore > scored[b].MatchScore
	})

	result := e.selectResults(scored)

	e.logger.Info("matched jobs",
		zap.Int("jobs", len(postings)),
		zap.Int("returned", len(result)),
		zap.Int("top_score", result[0].MatchScore),
	)

	return result, nil
}

// Score computes the composite score of a single posting.
func (e *Engine) Score(profile *resume.Profile, posting *jobs.Posting) ScoredJob {
	if profile == nil {
		profile = &resume.Profile{}
	}
	if posting == nil {
		posting = &jobs.Posting{}
	}

	skills := ScoreSkills(profile.Skills, posting)

	b := Breakdown{
		Skill:      skills.Score,
		Experience: ScoreExperience(profile.TotalExperience, posting),
		Category:   e.ScoreCategory(profile.JobTitles, profile.Education, posting.Category),
		Freshness:  ScoreFreshness(posting.CreatedAt, e.now()),
		Priority:   ScorePriority(posting),
	}

	w := e.cfg.Weights
	total := b.Skill*w.Skill +
		b.Experience*w.Experience +
		b.Category*w.Category +
		b.Freshness*w.Freshness +
		b.Priority*w.Priority

	score := int(min(max(math.Round(total), 0), 100))

	e.logger.Debug("scored job",
		zap.String("job_id", posting.ID),
		zap.Int("score", score),
		zap.Float64("skill", b.Skill),
		zap.Float64("experience", b.Experience),
		zap.Float64("category", b.Category),
		zap.Float64("freshness", b.Freshness),
		zap.Float64("priority", b.Priority),
	)

	return ScoredJob{
		Posting:        posting.Clone(),
		MatchScore:     score,
		MatchingSkills: skills.MatchingSkills,
		MatchReason:    Explain(b.Skill, b.Experience, b.Category, skills.MatchingSkills),
		Breakdown:      b,
	}
}

// selectResults expects scored sorted by descending score.
func (e *Engine) selectResults(scored []ScoredJob) []ScoredJob {
	cut := sort.Search(len(scored), func(i int) bool {
		return scored[i].MatchScore < e.cfg.HighQualityThreshold
	})
	if cut > 0 {
		return scored[:cut]
	}

	return scored[:min(e.cfg.FallbackLimit, len(scored))]
}
