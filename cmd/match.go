package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/filtering"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/resume"
	"github.com/spigell/job-matcher/internal/secrets"
)

const (
	PromptPrintTable          = "Print results as table"
	PromptPrintJSON           = "Print results as JSON"
	PromptReportByCategory    = "Report by category"
	PromptResultsToFile       = "Dump results to file"
	PromptAppendToExcludeFile = "Append results to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score job postings against a resume and show the best matches",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "resume profile file (json or yaml)")
	matchCmd.Flags().String("jobs", "", "job postings file or http(s) endpoint")
	matchCmd.Flags().StringP("exclude-file", "e", "", "special file with postings to exclude. Default is unset.")
	matchCmd.Flags().BoolP("yes", "y", false, "do not ask what to do with the results, print them and exit")
	matchCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	matchCmd.Flags().Bool("ai", false, "ask the AI reviewer about the top matches (same as ai.enabled)")
	matchCmd.Flags().StringSlice("skip-filter", nil, "names of pre-match filters to disable")

	viper.BindPFlag("resume", matchCmd.Flags().Lookup("resume"))
	viper.BindPFlag("jobs", matchCmd.Flags().Lookup("jobs"))
	viper.BindPFlag("exclude-file", matchCmd.Flags().Lookup("exclude-file"))
}

// match is the main command for the cli.
func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger = logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("starting the job-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.Resume == "" {
		logger.Fatal("resume profile is required", zap.String("hint", "set --resume or the 'resume' key in the configuration file"))
	}
	if config.Jobs == "" {
		logger.Fatal("job postings source is required", zap.String("hint", "set --jobs or the 'jobs' key in the configuration file"))
	}

	profile, err := resume.Load(config.Resume)
	if err != nil {
		logger.Fatal("loading resume profile", zap.Error(err), zap.String("path", config.Resume))
	}

	logger.Info("loaded resume profile",
		zap.Int("skills", len(profile.Skills)),
		zap.Int("job_titles", len(profile.JobTitles)),
		zap.Float64("total_experience", profile.TotalExperience),
	)

	postings, err := loadPostings(ctx, config, logger)
	if err != nil {
		logger.Fatal("getting job postings", zap.Error(err))
	}

	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no job postings found"))
		return
	}

	steps := prepareFilters(cmd)
	filtered, err := filtering.Run(ctx, &filtering.Config{
		ExcludeFile: config.ExcludeFile,
		Categories:  config.Filters.Categories,
		MaxAgeDays:  config.Filters.MaxAgeDays,
	}, filtering.Deps{Logger: logger}, steps, postings)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	if filtered.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no job postings left after filters"))
		return
	}

	engine, err := newEngine(config.Matching, logger)
	if err != nil {
		logger.Fatal("building matching engine", zap.Error(err))
	}

	scored, err := engine.Match(ctx, profile, filtered.Items)
	if err != nil {
		logger.Fatal("matching job postings", zap.Error(err))
	}

	reviews := reviewTop(ctx, cmd, config.AI, profile, scored, logger)
	results := buildResults(scored, reviews)

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("output")
	autoApprove, _ := cmd.Flags().GetBool("yes")

	if autoApprove {
		if err := writeResults(out, format, results); err != nil {
			logger.Fatal("printing results", zap.Error(err))
		}
		return
	}

	for {
		items := []string{PromptPrintTable, PromptPrintJSON, PromptReportByCategory, PromptResultsToFile}
		if config.ExcludeFile != "" && len(results) != 0 {
			items = append(items, PromptAppendToExcludeFile)
		}

		prompt := promptui.Select{
			Label: fmt.Sprintf("Found %d matches. What next?", len(results)),
			Items: append(items, PromptExit),
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		results, err = handleAction(action, out, logger, config, results)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, out io.Writer, logger *zap.Logger, config *Config, results []result) ([]result, error) {
	switch action {
	case PromptPrintTable:
		return results, writeResults(out, outputTable, results)
	case PromptPrintJSON:
		return results, writeResults(out, outputJSON, results)
	case PromptReportByCategory:
		pretty, _ := json.MarshalIndent(toPostings(results).ReportByCategory(), "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(results)))
		return results, nil
	case PromptResultsToFile:
		filename, err := jobs.DumpToTmpFile("matches_*.json", results)
		if err != nil {
			return results, fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return results, nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(config.ExcludeFile, logger, results)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return results, errExit
	default:
		return results, fmt.Errorf("invalid action: %s", action)
	}
}

// appendToExcludeFile records every result in the exclude file so the next
// run skips them, and clears the current list.
func appendToExcludeFile(path string, logger *zap.Logger, results []result) ([]result, error) {
	excluded, err := jobs.GetExcludedFromFile(path)
	if err != nil {
		return results, err
	}

	excluded.Append(toPostings(results).ToExcluded())

	if err := excluded.ToFile(path); err != nil {
		return results, err
	}

	logger.Info("appended to exclude file", zap.String("filename", path), zap.Int("count", len(results)))

	ids := excluded.IDs()
	return slices.DeleteFunc(results, func(r result) bool {
		return slices.Contains(ids, r.job.ID)
	}), nil
}

func loadPostings(ctx context.Context, config *Config, logger *zap.Logger) (*jobs.Postings, error) {
	if !jobs.IsRemote(config.Jobs) {
		postings, err := jobs.LoadFile(config.Jobs)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", config.Jobs, err)
		}
		logger.Info("getting job postings", zap.String("file", config.Jobs), zap.Int("count", postings.Len()))
		return postings, nil
	}

	token, err := resolveToken(config)
	if err != nil {
		return nil, err
	}

	postings, err := jobs.NewClient(logger, token).Fetch(ctx, config.Jobs)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", config.Jobs, err)
	}
	logger.Info("getting job postings", zap.String("endpoint", config.Jobs), zap.Int("count", postings.Len()))
	return postings, nil
}

// resolveToken returns the job board token. Public boards need none.
func resolveToken(config *Config) (string, error) {
	tokenFile := strings.TrimSpace(config.JobsTokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("jobs-token-file"))
	}

	if tokenFile == "" && os.Getenv("JOB_MATCHER_TOKEN") == "" {
		return "", nil
	}

	return secrets.Load(secrets.Source{
		Name: "job board token",
		File: tokenFile,
		Env:  "JOB_MATCHER_TOKEN",
	})
}

func prepareFilters(cmd *cobra.Command) []filtering.Filter {
	steps := filtering.Default()

	if cmd == nil {
		return steps
	}
	skipped, _ := cmd.Flags().GetStringSlice("skip-filter")
	for _, name := range skipped {
		filtering.DisableByName(steps, strings.TrimSpace(name), "disabled by --skip-filter")
	}

	return steps
}

func newEngine(cfg *matching.Config, logger *zap.Logger) (*matching.Engine, error) {
	if cfg == nil {
		defaults := matching.DefaultConfig()
		cfg = &defaults
	}

	base := *cfg
	overrides := base.CategoryKeywords
	base.CategoryKeywords = nil

	return matching.New(base,
		matching.WithCategoryKeywords(overrides),
		matching.WithLogger(logger),
	)
}

func reviewTop(ctx context.Context, cmd *cobra.Command, cfg *AIConfig, profile *resume.Profile, scored []matching.ScoredJob, logger *zap.Logger) map[string]*ai.FitAssessment {
	enabled := cfg != nil && cfg.Enabled
	if cmd != nil {
		if flag, _ := cmd.Flags().GetBool("ai"); flag {
			enabled = true
		}
	}
	if !enabled || len(scored) == 0 {
		return nil
	}
	if cfg == nil {
		cfg = &AIConfig{Top: defaultAITop}
	}
	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	reviewer, err := newAIReviewer(ctx, cfg, logger)
	if err != nil {
		logger.Warn("skipping ai review", zap.Error(err))
		return nil
	}

	return ai.ReviewTop(ctx, logger, reviewer, profile, scored, cfg.Top)
}

func newAIReviewer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Reviewer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.ProviderName {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:    "gemini api key",
		File:    cfg.Gemini.APIKeyFile,
		FileEnv: "GEMINI_API_KEY_FILE",
		Env:     "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:             cfg.Gemini.Model,
		MaxRetries:        cfg.Gemini.MaxRetries,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		BreakerFailures:   cfg.Gemini.BreakerFailures,
	}, logger)
	if err != nil {
		return nil, err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	reviewer := gemini.NewReviewer(generator, minScore, cfg.Gemini.MaxLogLength,
		logger.With(zap.Float64("minimum_fit_score", minScore)))
	reviewer.SetInstructions(cfg.Instructions)

	return reviewer, nil
}
