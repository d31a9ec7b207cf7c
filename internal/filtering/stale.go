package filtering

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
)

type staleFilter struct {
	toggle
	maxAge time.Duration
}

// NewStale creates a filter that removes postings older than the configured age.
// Postings without a timestamp are kept.
func NewStale() Filter {
	return &staleFilter{}
}

func (f *staleFilter) Name() string { return "stale" }

func (f *staleFilter) Validate(cfg *Config) error {
	f.maxAge = 0
	if cfg == nil {
		return nil
	}
	if cfg.MaxAgeDays < 0 {
		return fmt.Errorf("max-age-days must not be negative, got %d", cfg.MaxAgeDays)
	}
	f.maxAge = time.Duration(cfg.MaxAgeDays) * 24 * time.Hour
	return nil
}

func (f *staleFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.maxAge == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	cutoff := deps.now().Add(-f.maxAge)
	excluded := p.ExcludeFunc(func(posting *jobs.Posting) bool {
		return posting.CreatedAt != nil && posting.CreatedAt.Before(cutoff)
	})
	if len(excluded) > 0 {
		deps.logger().Info("excluding stale postings",
			zap.Time("cutoff", cutoff),
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *staleFilter) Status() Status {
	reason := f.reason
	if f.maxAge == 0 && reason == "" {
		reason = "max-age-days is not set"
	}
	details := map[string]string{
		"max_age_days": strconv.Itoa(int(f.maxAge / (24 * time.Hour))),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}
