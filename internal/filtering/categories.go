package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
)

type categoriesFilter struct {
	toggle
	categories []string
}

// NewCategories creates a filter that removes postings from denied categories.
func NewCategories() Filter {
	return &categoriesFilter{}
}

func (f *categoriesFilter) Name() string { return "categories" }

func (f *categoriesFilter) Validate(cfg *Config) error {
	f.categories = nil
	if cfg == nil {
		return nil
	}
	for _, c := range cfg.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			f.categories = append(f.categories, c)
		}
	}
	return nil
}

func (f *categoriesFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.categories) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	denied := make(map[string]struct{}, len(f.categories))
	for _, c := range f.categories {
		denied[c] = struct{}{}
	}

	excluded := p.ExcludeFunc(func(posting *jobs.Posting) bool {
		_, ok := denied[strings.ToLower(strings.TrimSpace(posting.Category))]
		return ok
	})
	if len(excluded) > 0 {
		deps.logger().Info("excluding postings by category",
			zap.Strings("excluded_categories", f.categories),
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *categoriesFilter) Status() Status {
	details := map[string]string{}
	if len(f.categories) > 0 {
		details["categories"] = strings.Join(f.categories, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
