package filtering

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-matcher/internal/jobs"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func postingsFixture() *jobs.Postings {
	old := now.AddDate(0, 0, -120)
	fresh := now.AddDate(0, 0, -3)
	return &jobs.Postings{Items: []*jobs.Posting{
		{ID: "1", Category: "software-development", CreatedAt: &fresh},
		{ID: "2", Category: "Marketing", CreatedAt: &fresh},
		{ID: "3", Category: "software-development", CreatedAt: &old},
		{ID: "4", Category: "design"},
	}}
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	excludeFile := filepath.Join(t.TempDir(), "excluded.json")
	excluded := &jobs.Postings{Items: []*jobs.Posting{{ID: "4"}}}
	if err := excluded.ToExcluded().ToFile(excludeFile); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	core, observed := observer.New(zapcore.InfoLevel)
	deps := Deps{Logger: zap.New(core), Now: func() time.Time { return now }}
	cfg := &Config{
		ExcludeFile: excludeFile,
		Categories:  []string{" marketing "},
		MaxAgeDays:  90,
	}

	result, err := Run(context.Background(), cfg, deps, Default(), postingsFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.IDs(); !slices.Equal(got, []string{"1"}) {
		t.Fatalf("unexpected remaining postings: %v", got)
	}

	steps := observed.FilterMessage("filter step").All()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step entries, got %d", len(steps))
	}
	for i, name := range []string{"exclude_file", "categories", "stale"} {
		ctx := steps[i].ContextMap()
		if ctx["name"] != name {
			t.Fatalf("step %d: expected %s, got %v", i, name, ctx["name"])
		}
		if ctx["dropped"] != int64(1) {
			t.Fatalf("step %s: expected one dropped posting, got %v", name, ctx["dropped"])
		}
	}
}

func TestRunWithEmptyConfigKeepsEverything(t *testing.T) {
	result, err := Run(context.Background(), &Config{}, Deps{}, Default(), postingsFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Len() != 4 {
		t.Fatalf("expected all postings to survive, got %d", result.Len())
	}
}

func TestRunSkipsDisabledFilters(t *testing.T) {
	steps := Default()
	DisableByName(steps, "categories", "requested by test")

	core, observed := observer.New(zapcore.InfoLevel)
	cfg := &Config{Categories: []string{"marketing"}}

	result, err := Run(context.Background(), cfg, Deps{Logger: zap.New(core)}, steps, postingsFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Len() != 4 {
		t.Fatalf("disabled filter must not drop postings, got %d left", result.Len())
	}
	if len(observed.FilterMessage("filter disabled").All()) != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}

	for _, status := range Describe(steps) {
		if status.Name == "categories" && (status.Enabled || status.Reason != "requested by test") {
			t.Fatalf("unexpected categories status: %+v", status)
		}
	}
}

func TestRunValidationError(t *testing.T) {
	_, err := Run(context.Background(), &Config{MaxAgeDays: -1}, Deps{}, Default(), postingsFixture())
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, &Config{}, Deps{}, Default(), postingsFixture()); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestDescribe(t *testing.T) {
	steps := Default()
	cfg := &Config{ExcludeFile: "excluded.json", Categories: []string{"Sales"}}
	for _, step := range steps {
		if err := step.Validate(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].Details["path"] != "excluded.json" {
		t.Fatalf("unexpected exclude file details: %v", statuses[0].Details)
	}
	if statuses[1].Details["categories"] != "sales" {
		t.Fatalf("unexpected categories details: %v", statuses[1].Details)
	}
	if statuses[2].Reason == "" {
		t.Fatalf("expected stale filter to explain why it is inactive")
	}
}
