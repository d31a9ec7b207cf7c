package matching

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	DefaultHighQualityThreshold = 50
	DefaultFallbackLimit        = 10
)

// Weights are the multipliers of the component scores in the composite score.
type Weights struct {
	Skill      float64 `mapstructure:"skill" validate:"gte=0"`
	Experience float64 `mapstructure:"experience" validate:"gte=0"`
	Category   float64 `mapstructure:"category" validate:"gte=0"`
	Freshness  float64 `mapstructure:"freshness" validate:"gte=0"`
	Priority   float64 `mapstructure:"priority" validate:"gte=0"`
}

func DefaultWeights() Weights {
	return Weights{
		Skill:      0.50,
		Experience: 0.20,
		Category:   0.15,
		Freshness:  0.10,
		Priority:   0.05,
	}
}

var defaultCategoryKeywords = map[string][]string{
	"software-development": {"developer", "engineer", "programmer", "software", "frontend", "backend", "full stack", "fullstack", "web"},
	"data-science":         {"data scientist", "machine learning", "ml engineer", "data science", "artificial intelligence", "statistics", "research"},
	"data-analytics":       {"analyst", "analytics", "data", "business intelligence", "statistics", "reporting"},
	"design":               {"designer", "design", "ux designer", "ui designer", "creative", "graphic", "illustrator"},
	"marketing":            {"marketing", "brand", "seo", "content", "social media", "campaign", "advertising", "growth"},
	"sales":                {"sales", "account executive", "business development", "account manager", "representative"},
	"customer-support":     {"support", "customer service", "customer success", "help desk", "call center"},
	"finance":              {"finance", "financial", "accountant", "accounting", "cpa", "auditor", "controller"},
	"human-resources":      {"human resources", "recruiter", "recruiting", "talent", "people operations", "hr generalist"},
	"operations":           {"operations", "logistics", "supply chain", "coordinator", "administrator"},
	"product-management":   {"product manager", "product owner", "product management", "program manager"},
	"devops":               {"devops", "sre", "site reliability", "infrastructure", "cloud", "platform engineer", "sysadmin"},
	"healthcare":           {"nurse", "medical", "health", "clinical", "physician", "pharmacy", "therapist"},
	"education":            {"teacher", "tutor", "instructor", "education", "professor", "curriculum"},
	"legal":                {"lawyer", "attorney", "legal", "paralegal", "counsel", "law"},
	"writing":              {"writer", "editor", "copywriter", "journalist", "technical writer", "content"},
}

// DefaultCategoryKeywords returns a fresh copy of the built-in category table.
func DefaultCategoryKeywords() map[string][]string {
	return copyKeywords(defaultCategoryKeywords)
}

// Config is the immutable configuration of an Engine.
type Config struct {
	Weights              Weights             `mapstructure:"weights"`
	CategoryKeywords     map[string][]string `mapstructure:"categories"`
	HighQualityThreshold int                 `mapstructure:"threshold" validate:"gte=0,lte=100"`
	FallbackLimit        int                 `mapstructure:"fallback-limit" validate:"gte=1"`
	Workers              int                 `mapstructure:"workers" validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{
		Weights:              DefaultWeights(),
		CategoryKeywords:     DefaultCategoryKeywords(),
		HighQualityThreshold: DefaultHighQualityThreshold,
		FallbackLimit:        DefaultFallbackLimit,
		Workers:              1,
	}
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}
	return nil
}

// Option customizes an Engine built by New.
type Option func(*Engine)

// WithClock replaces the time source used for freshness scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithWeights(w Weights) Option {
	return func(e *Engine) { e.cfg.Weights = w }
}

// WithCategoryKeywords replaces the category table. Extra categories are
// added and existing ones are overridden; the input map is copied.
func WithCategoryKeywords(keywords map[string][]string) Option {
	return func(e *Engine) {
		merged := copyKeywords(e.cfg.CategoryKeywords)
		maps.Copy(merged, normalizeKeywords(keywords))
		e.cfg.CategoryKeywords = merged
	}
}

func WithWorkers(n int) Option {
	return func(e *Engine) { e.cfg.Workers = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func copyKeywords(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for k, v := range src {
		dst[k] = slices.Clone(v)
	}
	return dst
}

func normalizeKeywords(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for category, keywords := range src {
		normalized := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kw = strings.ToLower(kw); strings.TrimSpace(kw) != "" {
				normalized = append(normalized, kw)
			}
		}
		dst[strings.ToLower(strings.TrimSpace(category))] = normalized
	}
	return dst
}
